// -----------------------------------------------------------------------
// Tissue Mask Worker - single-pass Otsu thresholding at the coarsest level
// -----------------------------------------------------------------------

package workers

import (
	"context"
	"fmt"
	"image"

	"github.com/ternarybob/arbor"

	"github.com/martien2kk/workflow-scheduler/internal/common"
	"github.com/martien2kk/workflow-scheduler/internal/interfaces"
	"github.com/martien2kk/workflow-scheduler/internal/models"
)

// otsuFallbackThreshold is used when the grayscale histogram is degenerate
// (empty, or every pixel in a single bin, e.g. all-zero or all-one) and
// Otsu's method cannot separate classes.
const otsuFallbackThreshold = 0.85

// TissueMaskWorker computes a coarse tissue mask in a single untiled pass:
// the coarsest pyramid level is converted to grayscale, thresholded with
// Otsu's method, and rendered as a binary mask plus a red-tinted overlay.
// tiles_total stays 0; the lifecycle controller sets progress to 1.0 on
// success.
type TissueMaskWorker struct {
	slides  interfaces.SlideOpener
	results interfaces.ResultStore
	cfg     common.RuntimeConfig
	logger  arbor.ILogger
}

// NewTissueMaskWorker creates the tissue mask worker.
func NewTissueMaskWorker(
	slides interfaces.SlideOpener,
	results interfaces.ResultStore,
	cfg common.RuntimeConfig,
	logger arbor.ILogger,
) *TissueMaskWorker {
	return &TissueMaskWorker{
		slides:  slides,
		results: results,
		cfg:     cfg,
		logger:  logger,
	}
}

// Type implements interfaces.JobWorker.
func (w *TissueMaskWorker) Type() models.JobType {
	return models.JobTypeTissueMask
}

// Execute implements interfaces.JobWorker.
func (w *TissueMaskWorker) Execute(ctx context.Context, job *models.Job) error {
	wsiPath, ok := job.GetParamString("wsi_path")
	if !ok || wsiPath == "" {
		return fmt.Errorf("%w: wsi_path parameter is required", models.ErrSourceUnavailable)
	}

	slide, err := w.slides.Open(wsiPath)
	if err != nil {
		return err
	}
	defer slide.Close()

	level := slide.LevelCount() - 1
	lw, lh := slide.LevelDimensions(level)
	base, err := slide.ReadRegion(0, 0, level, lw, lh)
	if err != nil {
		return fmt.Errorf("%w: reading level %d: %v", models.ErrSourceUnavailable, level, err)
	}

	gray := toGrayscale(base)
	threshold, ok := OtsuThreshold(gray)
	if !ok {
		threshold = otsuFallbackThreshold
		w.logger.Warn().
			Str("job_id", job.ID).
			Msg("Degenerate grayscale histogram - using fallback threshold")
	}

	mask := RenderTissueMask(gray, threshold)
	overlay := RenderOverlay(base, mask)

	if err := w.results.SaveArtifact(job.ID, "tissue_mask.png", mask); err != nil {
		return err
	}
	if err := w.results.SaveArtifact(job.ID, "tissue_overlay.png", overlay); err != nil {
		return err
	}

	payload := &models.TissueMaskResult{
		Type:             "tissue_mask",
		WSIPath:          wsiPath,
		TissueMaskPNG:    w.results.ArtifactURL(job.ID, "tissue_mask.png"),
		TissueOverlayPNG: w.results.ArtifactURL(job.ID, "tissue_overlay.png"),
	}
	if err := w.results.SaveResult(job, payload); err != nil {
		return err
	}

	w.logger.Info().
		Str("job_id", job.ID).
		Str("wsi_path", wsiPath).
		Int("level_width", lw).
		Int("level_height", lh).
		Str("threshold", fmt.Sprintf("%.4f", threshold)).
		Msg("Tissue mask finished")

	return nil
}

// toGrayscale converts an RGB image to luminance in [0,1] using the
// conventional ITU-R BT.601 coefficients.
func toGrayscale(img image.Image) [][]float64 {
	bounds := img.Bounds()
	w := bounds.Dx()
	h := bounds.Dy()
	gray := make([][]float64, h)
	for y := 0; y < h; y++ {
		row := make([]float64, w)
		for x := 0; x < w; x++ {
			r, g, b, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			// RGBA returns 16-bit channels.
			lum := 0.299*float64(r) + 0.587*float64(g) + 0.114*float64(b)
			row[x] = lum / 65535.0
		}
		gray[y] = row
	}
	return gray
}

// OtsuThreshold picks the threshold minimizing intra-class variance of the
// 256-bin grayscale histogram. Returns false when the histogram is
// degenerate and no threshold separates two classes.
func OtsuThreshold(gray [][]float64) (float64, bool) {
	var hist [256]int
	total := 0
	for _, row := range gray {
		for _, v := range row {
			bin := int(v * 255.0)
			if bin < 0 {
				bin = 0
			}
			if bin > 255 {
				bin = 255
			}
			hist[bin]++
			total++
		}
	}
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

	for t := 0; t < 256; t++ {
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
	// Tissue is classified as gray < t, so the separating value is the
	// upper edge of the chosen bin: the bin itself belongs to the darker
	// class.
	return float64(bestThreshold+1) / 255.0, true
}
