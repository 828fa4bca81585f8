package interfaces

import (
	"image"

	"github.com/martien2kk/workflow-scheduler/internal/models"
)

// TileAnalyzer is the opaque per-tile computation (e.g. a nuclei
// segmentation model). A single shared instance serves all jobs; Analyze
// must be safe to call from multiple job workers concurrently. If an
// implementation is not, the runtime gates it behind a per-analyzer mutex
// (see the runtime's serialize_analyzer setting).
type TileAnalyzer interface {
	Analyze(tile image.Image, pixelSizeUm float64) (*models.LabelImage, error)
}

// AnalyzerFactory constructs the shared analyzer. Construction happens
// lazily on the first worker that needs it, exactly once per process.
type AnalyzerFactory func() (TileAnalyzer, error)
