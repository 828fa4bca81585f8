// -----------------------------------------------------------------------
// Analyzer Provider - lazy one-shot initialization of the shared analyzer
// -----------------------------------------------------------------------

package workers

import (
	"fmt"
	"image"
	"sync"

	"github.com/ternarybob/arbor"

	"github.com/martien2kk/workflow-scheduler/internal/interfaces"
	"github.com/martien2kk/workflow-scheduler/internal/models"
)

// AnalyzerProvider constructs the shared tile analyzer exactly once, on the
// first worker that needs it. Concurrent first users serialize behind the
// sync.Once barrier; construction never runs on the scheduler loop.
//
// When serialize is set the analyzer is wrapped so that concurrent Analyze
// calls from different job workers are gated by a per-analyzer mutex.
type AnalyzerProvider struct {
	factory   interfaces.AnalyzerFactory
	serialize bool
	logger    arbor.ILogger

	once     sync.Once
	analyzer interfaces.TileAnalyzer
	err      error
}

// NewAnalyzerProvider wraps an analyzer factory.
func NewAnalyzerProvider(factory interfaces.AnalyzerFactory, serialize bool, logger arbor.ILogger) *AnalyzerProvider {
	return &AnalyzerProvider{
		factory:   factory,
		serialize: serialize,
		logger:    logger,
	}
}

// Get returns the shared analyzer, constructing it on first use. A failed
// construction is sticky: every subsequent Get reports the same error.
func (p *AnalyzerProvider) Get() (interfaces.TileAnalyzer, error) {
	p.once.Do(func() {
		p.logger.Info().Bool("serialized", p.serialize).Msg("Initializing shared tile analyzer")
		analyzer, err := p.factory()
		if err != nil {
			p.err = fmt.Errorf("%w: %v", models.ErrAnalyzerFailure, err)
			p.logger.Error().Err(err).Msg("Tile analyzer initialization failed")
			return
		}
		if p.serialize {
			analyzer = &lockedAnalyzer{inner: analyzer}
		}
		p.analyzer = analyzer
	})
	return p.analyzer, p.err
}

// lockedAnalyzer gates a non-concurrent-safe analyzer behind a mutex.
type lockedAnalyzer struct {
	mu    sync.Mutex
	inner interfaces.TileAnalyzer
}

func (a *lockedAnalyzer) Analyze(tile image.Image, pixelSizeUm float64) (*models.LabelImage, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.inner.Analyze(tile, pixelSizeUm)
}
