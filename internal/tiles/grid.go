// -----------------------------------------------------------------------
// Tile Grid Planner - deterministic tiling of a full-resolution raster
// -----------------------------------------------------------------------

package tiles

import (
	"fmt"

	"github.com/martien2kk/workflow-scheduler/internal/models"
)

// Tile is one rectangle of the planned grid, in full-resolution pixel
// coordinates. Edge tiles are clipped to the raster, never padded.
type Tile struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

// Plan returns the row-major tile grid covering [0,width) x [0,height) with
// the given tile size and overlap. The stride along each axis is
// tileSize-overlap, the grid starts at (0,0) and x varies fastest. The
// index of a tile in the returned slice is its stable tile index.
//
// Requires tileSize >= 1 and tileSize > overlap >= 0; anything else fails
// with models.ErrInvalidGeometry.
func Plan(width, height, tileSize, overlap int) ([]Tile, error) {
	if tileSize < 1 || overlap < 0 || overlap >= tileSize {
		return nil, fmt.Errorf("%w: tile_size=%d overlap=%d", models.ErrInvalidGeometry, tileSize, overlap)
	}
	if width < 0 || height < 0 {
		return nil, fmt.Errorf("%w: raster %dx%d", models.ErrInvalidGeometry, width, height)
	}

	stride := tileSize - overlap
	tiles := make([]Tile, 0)
	for y := 0; y < height; y += stride {
		h := tileSize
		if y+h > height {
			h = height - y
		}
		for x := 0; x < width; x += stride {
			w := tileSize
			if x+w > width {
				w = width - x
			}
			tiles = append(tiles, Tile{X: x, Y: y, W: w, H: h})
		}
	}
	return tiles, nil
}
