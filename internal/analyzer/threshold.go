// -----------------------------------------------------------------------
// Threshold Analyzer - built-in intensity-based tile analyzer
// -----------------------------------------------------------------------

package analyzer

import (
	"image"

	"github.com/martien2kk/workflow-scheduler/internal/interfaces"
	"github.com/martien2kk/workflow-scheduler/internal/models"
)

// ThresholdAnalyzer is the default tile analyzer: it thresholds the tile's
// luminance with Otsu's method, treats darker-than-threshold pixels as
// nuclei material, and labels 4-connected components as instances.
//
// It stands in for heavier segmentation models; any model that produces a
// label map or probability tensor can replace it behind the TileAnalyzer
// interface. Analyze is stateless and safe for concurrent use.
type ThresholdAnalyzer struct {
	// minArea drops components smaller than this many pixels (noise).
	minArea int
}

// New creates the default analyzer.
func New() *ThresholdAnalyzer {
	return &ThresholdAnalyzer{minArea: 4}
}

// Analyze implements interfaces.TileAnalyzer.
func (a *ThresholdAnalyzer) Analyze(tile image.Image, pixelSizeUm float64) (*models.LabelImage, error) {
	bounds := tile.Bounds()
	w := bounds.Dx()
	h := bounds.Dy()

	gray := make([]float64, w*h)
	var hist [256]int
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, b, _ := tile.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			lum := (0.299*float64(r) + 0.587*float64(g) + 0.114*float64(b)) / 65535.0
			gray[y*w+x] = lum
			bin := int(lum * 255.0)
			if bin > 255 {
				bin = 255
			}
			hist[bin]++
		}
	}

	threshold, ok := otsu(hist[:], w*h)
	if !ok {
		// Uniform tile: nothing to segment.
		return emptyLabels(w, h), nil
	}

	// Dark pixels are foreground.
	foreground := make([]bool, w*h)
	for i, v := range gray {
		foreground[i] = v < threshold
	}

	labels := labelComponents(foreground, w, h, a.minArea)

	data := make([]float64, w*h)
	for i, v := range labels {
		data[i] = float64(v)
	}
	return &models.LabelImage{Shape: []int{h, w}, Data: data}, nil
}

func emptyLabels(w, h int) *models.LabelImage {
	return &models.LabelImage{Shape: []int{h, w}, Data: make([]float64, w*h)}
}

// labelComponents assigns a distinct positive label to every 4-connected
// foreground component with at least minArea pixels.
func labelComponents(foreground []bool, w, h, minArea int) []int {
	labels := make([]int, w*h)
	next := 0
	queue := make([]int, 0, 256)

	for start := range foreground {
		if !foreground[start] || labels[start] != 0 {
			continue
		}
		next++
		label := next

		queue = queue[:0]
		queue = append(queue, start)
		labels[start] = label
		component := []int{start}

		for len(queue) > 0 {
			idx := queue[len(queue)-1]
			queue = queue[:len(queue)-1]
			x := idx % w
			y := idx / w

			for _, n := range [4][2]int{{x - 1, y}, {x + 1, y}, {x, y - 1}, {x, y + 1}} {
				nx, ny := n[0], n[1]
				if nx < 0 || ny < 0 || nx >= w || ny >= h {
					continue
				}
				nidx := ny*w + nx
				if foreground[nidx] && labels[nidx] == 0 {
					labels[nidx] = label
					queue = append(queue, nidx)
					component = append(component, nidx)
				}
			}
		}

		if len(component) < minArea {
			for _, idx := range component {
				labels[idx] = 0
			}
			next--
		}
	}
	return labels
}

// otsu picks the histogram threshold maximizing between-class variance.
func otsu(hist []int, total int) (float64, bool) {
	if total == 0 {
		return 0, false
	}
	sum := 0.0
	for i, count := range hist {
		sum += float64(i) * float64(count)
	}

	sumBackground := 0.0
	weightBackground := 0
	bestBetween := -1.0
	bestThreshold := -1

	for t := 0; t < len(hist); t++ {
		weightBackground += hist[t]
		if weightBackground == 0 {
			continue
		}
		weightForeground := total - weightBackground
		if weightForeground == 0 {
			break
		}
		sumBackground += float64(t) * float64(hist[t])

		meanBackground := sumBackground / float64(weightBackground)
		meanForeground := (sum - sumBackground) / float64(weightForeground)
		diff := meanBackground - meanForeground
		between := float64(weightBackground) * float64(weightForeground) * diff * diff
		if between > bestBetween {
			bestBetween = between
			bestThreshold = t
		}
	}

	if bestThreshold < 0 {
		return 0, false
	}
	// Foreground is classified as gray < t, so return the upper edge of
	// the chosen bin: the bin itself belongs to the darker class.
	return float64(bestThreshold+1) / 255.0, true
}

var _ interfaces.TileAnalyzer = (*ThresholdAnalyzer)(nil)
