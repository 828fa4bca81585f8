package workers

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/martien2kk/workflow-scheduler/internal/models"
)

func TestRenderCellMask_ScalesBoxesToLowRes(t *testing.T) {
	// Full resolution 100x100, low-res 50x50: everything halves.
	cells := []models.CellDetection{
		{BBox: models.BBox{XMin: 20, YMin: 40, XMax: 40, YMax: 60}},
	}
	mask := RenderCellMask(cells, 100, 100, 50, 50)

	// Inside the scaled rectangle [10,20) x [20,30).
	assert.Equal(t, uint8(255), mask.GrayAt(10, 20).Y)
	assert.Equal(t, uint8(255), mask.GrayAt(19, 29).Y)
	// Exclusive on the high side.
	assert.Equal(t, uint8(0), mask.GrayAt(20, 20).Y)
	assert.Equal(t, uint8(0), mask.GrayAt(10, 30).Y)
	// Outside on the low side.
	assert.Equal(t, uint8(0), mask.GrayAt(9, 20).Y)
}

func TestRenderCellMask_TinyBoxStillMarksPixel(t *testing.T) {
	cells := []models.CellDetection{
		{BBox: models.BBox{XMin: 50, YMin: 50, XMax: 51, YMax: 51}},
	}
	mask := RenderCellMask(cells, 1000, 1000, 10, 10)
	// A single full-res pixel collapses below one low-res pixel but still
	// marks one.
	assert.Equal(t, uint8(255), mask.GrayAt(0, 0).Y)
}

func TestRenderCellMask_Deterministic(t *testing.T) {
	cells := []models.CellDetection{
		{BBox: models.BBox{XMin: 1, YMin: 2, XMax: 30, YMax: 40}},
		{BBox: models.BBox{XMin: 60, YMin: 10, XMax: 90, YMax: 25}},
	}
	a := RenderCellMask(cells, 100, 50, 40, 20)
	b := RenderCellMask(cells, 100, 50, 40, 20)
	assert.Equal(t, a.Pix, b.Pix)
}

func TestRenderOverlay_TintsMaskedPixelsRed(t *testing.T) {
	base := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	white := color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	base.SetNRGBA(0, 0, white)
	base.SetNRGBA(1, 0, white)

	mask := image.NewGray(image.Rect(0, 0, 2, 1))
	mask.SetGray(0, 0, color.Gray{Y: 255})

	overlay := RenderOverlay(base, mask)

	// Fully masked pixel: alpha 90/255 of solid red over white.
	tinted := overlay.NRGBAAt(0, 0)
	assert.Equal(t, uint8(255), tinted.R)
	assert.Equal(t, uint8(165), tinted.G)
	assert.Equal(t, uint8(165), tinted.B)

	// Unmasked pixel is untouched.
	require.Equal(t, white, overlay.NRGBAAt(1, 0))
}

func TestRenderTissueMask_ThresholdBoundary(t *testing.T) {
	gray := [][]float64{{0.2, 0.5, 0.8}}
	mask := RenderTissueMask(gray, 0.5)
	assert.Equal(t, uint8(255), mask.GrayAt(0, 0).Y)
	// Exactly at the threshold is background, not tissue.
	assert.Equal(t, uint8(0), mask.GrayAt(1, 0).Y)
	assert.Equal(t, uint8(0), mask.GrayAt(2, 0).Y)
}
