package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLabelImage_Labels2D(t *testing.T) {
	li := &LabelImage{
		Shape: []int{2, 3},
		Data:  []float64{0, 1, 1, 0, 0, 2},
	}
	labels, err := li.Labels()
	require.NoError(t, err)
	assert.Equal(t, [][]int{{0, 1, 1}, {0, 0, 2}}, labels)
}

func TestLabelImage_SqueezesLeadingAxes(t *testing.T) {
	li := &LabelImage{
		Shape: []int{1, 1, 2, 2},
		Data:  []float64{0, 3, 3, 0},
	}
	labels, err := li.Labels()
	require.NoError(t, err)
	assert.Equal(t, [][]int{{0, 3}, {3, 0}}, labels)
}

func TestLabelImage_ArgmaxChannels(t *testing.T) {
	// 2x2 with 3 channels: channel index with highest probability wins.
	li := &LabelImage{
		Shape: []int{2, 2, 3},
		Data: []float64{
			0.9, 0.1, 0.0, // -> 0 (background)
			0.2, 0.7, 0.1, // -> 1
			0.1, 0.2, 0.7, // -> 2
			0.3, 0.3, 0.4, // -> 2
		},
	}
	labels, err := li.Labels()
	require.NoError(t, err)
	assert.Equal(t, [][]int{{0, 1}, {2, 2}}, labels)
}

func TestLabelImage_ShapeMismatch(t *testing.T) {
	li := &LabelImage{Shape: []int{2, 2}, Data: []float64{1, 2, 3}}
	_, err := li.Labels()
	assert.Error(t, err)
}

func TestLabelImage_UnsupportedRank(t *testing.T) {
	li := &LabelImage{Shape: []int{2, 2, 2, 2}, Data: make([]float64, 16)}
	_, err := li.Labels()
	assert.Error(t, err)
}

func TestRegionsOf_BoundingBoxesAndArea(t *testing.T) {
	labels := [][]int{
		{0, 1, 1, 0},
		{0, 1, 0, 0},
		{5, 0, 0, 5},
	}
	regions := RegionsOf(labels)
	require.Len(t, regions, 2)

	// Max edges are exclusive: label 1 spans rows [0,2) and cols [1,3).
	assert.Equal(t, Region{Label: 1, MinRow: 0, MinCol: 1, MaxRow: 2, MaxCol: 3, AreaPixels: 3}, regions[0])
	assert.Equal(t, Region{Label: 5, MinRow: 2, MinCol: 0, MaxRow: 3, MaxCol: 4, AreaPixels: 2}, regions[1])
}

func TestRegionsOf_SparseLabelsNeedNotBeDense(t *testing.T) {
	labels := [][]int{{7, 0, 42}}
	regions := RegionsOf(labels)
	require.Len(t, regions, 2)
	assert.Equal(t, 7, regions[0].Label)
	assert.Equal(t, 42, regions[1].Label)
}

func TestRegionsOf_EmptyBackground(t *testing.T) {
	regions := RegionsOf([][]int{{0, 0}, {0, 0}})
	assert.Empty(t, regions)
}
