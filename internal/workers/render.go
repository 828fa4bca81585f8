// -----------------------------------------------------------------------
// Artifact Rendering - low-resolution mask and overlay images
// -----------------------------------------------------------------------

package workers

import (
	"image"
	"image/color"

	"github.com/disintegration/imaging"

	"github.com/martien2kk/workflow-scheduler/internal/models"
)

// overlayAlphaMax is the blend weight of a fully set mask pixel: 90/255,
// roughly 35% of full red.
const overlayAlphaMax = 90.0 / 255.0

// RenderCellMask draws every detection's bounding box as a filled rectangle
// on a lw x lh single-channel mask. Boxes are given in full-resolution
// coordinates and mapped down with the level scale factors; rectangles stay
// inclusive on the low corner and exclusive on the high corner.
func RenderCellMask(cells []models.CellDetection, fullW, fullH, lw, lh int) *image.Gray {
	mask := image.NewGray(image.Rect(0, 0, lw, lh))
	if fullW <= 0 || fullH <= 0 {
		return mask
	}
	sx := float64(lw) / float64(fullW)
	sy := float64(lh) / float64(fullH)

	for _, cell := range cells {
		x0 := int(float64(cell.BBox.XMin) * sx)
		y0 := int(float64(cell.BBox.YMin) * sy)
		x1 := int(float64(cell.BBox.XMax) * sx)
		y1 := int(float64(cell.BBox.YMax) * sy)

		// Degenerate guard: a box that collapses below one low-res pixel
		// still marks its pixel.
		if x1 <= x0 {
			x1 = x0 + 1
		}
		if y1 <= y0 {
			y1 = y0 + 1
		}
		fillRect(mask, x0, y0, x1, y1)
	}
	return mask
}

func fillRect(mask *image.Gray, x0, y0, x1, y1 int) {
	bounds := mask.Bounds()
	if x0 < bounds.Min.X {
		x0 = bounds.Min.X
	}
	if y0 < bounds.Min.Y {
		y0 = bounds.Min.Y
	}
	if x1 > bounds.Max.X {
		x1 = bounds.Max.X
	}
	if y1 > bounds.Max.Y {
		y1 = bounds.Max.Y
	}
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			mask.SetGray(x, y, color.Gray{Y: 255})
		}
	}
}

// RenderTissueMask converts a thresholded grayscale level into a binary
// mask: pixels darker than the threshold are tissue (255), everything else
// background (0).
func RenderTissueMask(gray [][]float64, threshold float64) *image.Gray {
	h := len(gray)
	w := 0
	if h > 0 {
		w = len(gray[0])
	}
	mask := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if gray[y][x] < threshold {
				mask.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}
	return mask
}

// RenderOverlay tints the masked regions of the base image red. The blend
// weight scales linearly with the mask value so that a fully set pixel is
// blended at overlayAlphaMax.
func RenderOverlay(base image.Image, mask *image.Gray) *image.NRGBA {
	out := imaging.Clone(base)
	bounds := out.Bounds()
	maskBounds := mask.Bounds()

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			if x >= maskBounds.Max.X || y >= maskBounds.Max.Y {
				continue
			}
			m := mask.GrayAt(x, y).Y
			if m == 0 {
				continue
			}
			alpha := float64(m) / 255.0 * overlayAlphaMax
			px := out.NRGBAAt(x, y)
			px.R = blend(px.R, 255, alpha)
			px.G = blend(px.G, 0, alpha)
			px.B = blend(px.B, 0, alpha)
			out.SetNRGBA(x, y, px)
		}
	}
	return out
}

func blend(base, tint uint8, alpha float64) uint8 {
	v := (1-alpha)*float64(base) + alpha*float64(tint)
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v + 0.5)
}
