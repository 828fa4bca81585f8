package workers

import (
	"fmt"
	"image"
	"image/color"

	"github.com/martien2kk/workflow-scheduler/internal/interfaces"
	"github.com/martien2kk/workflow-scheduler/internal/models"
)

// fakeSlide is an in-memory two-level pyramid for worker tests.
type fakeSlide struct {
	levels []*image.NRGBA
	closed bool
}

func newFakeSlide(fullW, fullH, coarseW, coarseH int, fill color.NRGBA) *fakeSlide {
	full := image.NewNRGBA(image.Rect(0, 0, fullW, fullH))
	coarse := image.NewNRGBA(image.Rect(0, 0, coarseW, coarseH))
	for _, img := range []*image.NRGBA{full, coarse} {
		b := img.Bounds()
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				img.SetNRGBA(x, y, fill)
			}
		}
	}
	return &fakeSlide{levels: []*image.NRGBA{full, coarse}}
}

func (s *fakeSlide) Dimensions() (int, int) {
	b := s.levels[0].Bounds()
	return b.Dx(), b.Dy()
}

func (s *fakeSlide) LevelCount() int { return len(s.levels) }

func (s *fakeSlide) LevelDimensions(level int) (int, int) {
	b := s.levels[level].Bounds()
	return b.Dx(), b.Dy()
}

func (s *fakeSlide) ReadRegion(x, y, level, w, h int) (image.Image, error) {
	if s.closed {
		return nil, fmt.Errorf("handle closed")
	}
	src := s.levels[level]
	out := image.NewNRGBA(image.Rect(0, 0, w, h))
	for dy := 0; dy < h; dy++ {
		for dx := 0; dx < w; dx++ {
			out.SetNRGBA(dx, dy, src.NRGBAAt(x+dx, y+dy))
		}
	}
	return out, nil
}

func (s *fakeSlide) Close() error {
	s.closed = true
	return nil
}

// fakeOpener hands out a fixed slide for a known path.
type fakeOpener struct {
	path  string
	slide *fakeSlide
}

func (o *fakeOpener) Open(path string) (interfaces.PyramidImage, error) {
	if path != o.path {
		return nil, fmt.Errorf("%w: %s", models.ErrSourceUnavailable, path)
	}
	return o.slide, nil
}

// dotAnalyzer marks a single labeled pixel at (markRow, markCol) of every
// tile that is large enough, so coordinate translation is easy to verify.
type dotAnalyzer struct {
	markRow int
	markCol int
	calls   int
}

func (a *dotAnalyzer) Analyze(tile image.Image, pixelSizeUm float64) (*models.LabelImage, error) {
	a.calls++
	b := tile.Bounds()
	w, h := b.Dx(), b.Dy()
	data := make([]float64, w*h)
	if a.markRow < h && a.markCol < w {
		data[a.markRow*w+a.markCol] = 1
	}
	return &models.LabelImage{Shape: []int{h, w}, Data: data}, nil
}
