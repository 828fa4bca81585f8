// -----------------------------------------------------------------------
// Slide Reader - image-file-backed pyramid implementation
// -----------------------------------------------------------------------

package slide

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"github.com/disintegration/imaging"

	"github.com/martien2kk/workflow-scheduler/internal/interfaces"
	"github.com/martien2kk/workflow-scheduler/internal/models"
)

// coarseTarget bounds the longer edge of the synthesized coarsest level.
const coarseTarget = 1024

// Reader opens plain raster files (PNG, JPEG) and presents them as a
// pyramid: the full-resolution raster, plus a downsampled coarse level for
// previews and artifacts when either edge exceeds coarseTarget. Smaller
// rasters have a single level. Dedicated slide formats plug in behind
// the same interfaces.SlideOpener contract.
type Reader struct{}

// NewReader creates the image-file slide opener.
func NewReader() *Reader {
	return &Reader{}
}

// Open implements interfaces.SlideOpener.
func (r *Reader) Open(path string) (interfaces.PyramidImage, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", models.ErrSourceUnavailable, path, err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", models.ErrSourceUnavailable, path, err)
	}

	full := imaging.Clone(img)
	bounds := full.Bounds()
	w := bounds.Dx()
	h := bounds.Dy()

	levels := []*image.NRGBA{full}
	if w > coarseTarget || h > coarseTarget {
		coarse := imaging.Fit(full, coarseTarget, coarseTarget, imaging.Lanczos)
		levels = append(levels, coarse)
	}

	return &pyramid{path: path, levels: levels}, nil
}

type pyramid struct {
	path   string
	levels []*image.NRGBA
	closed bool
}

func (p *pyramid) Dimensions() (int, int) {
	bounds := p.levels[0].Bounds()
	return bounds.Dx(), bounds.Dy()
}

func (p *pyramid) LevelCount() int {
	return len(p.levels)
}

func (p *pyramid) LevelDimensions(level int) (int, int) {
	if level < 0 || level >= len(p.levels) {
		return 0, 0
	}
	bounds := p.levels[level].Bounds()
	return bounds.Dx(), bounds.Dy()
}

func (p *pyramid) ReadRegion(x, y, level, w, h int) (image.Image, error) {
	if p.closed {
		return nil, fmt.Errorf("%w: %s: handle closed", models.ErrSourceUnavailable, p.path)
	}
	if level < 0 || level >= len(p.levels) {
		return nil, fmt.Errorf("%w: %s: level %d out of range", models.ErrSourceUnavailable, p.path, level)
	}
	src := p.levels[level]
	bounds := src.Bounds()
	if x < 0 || y < 0 || w < 0 || h < 0 || x+w > bounds.Dx() || y+h > bounds.Dy() {
		return nil, fmt.Errorf("%w: %s: region (%d,%d)+(%dx%d) outside level %d", models.ErrSourceUnavailable, p.path, x, y, w, h, level)
	}
	return imaging.Crop(src, image.Rect(x, y, x+w, y+h)), nil
}

func (p *pyramid) Close() error {
	p.closed = true
	return nil
}
