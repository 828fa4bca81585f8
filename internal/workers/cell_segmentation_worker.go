// -----------------------------------------------------------------------
// Cell Segmentation Worker - tiled analyzer pipeline over a slide raster
// -----------------------------------------------------------------------

package workers

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/martien2kk/workflow-scheduler/internal/common"
	"github.com/martien2kk/workflow-scheduler/internal/interfaces"
	"github.com/martien2kk/workflow-scheduler/internal/models"
	"github.com/martien2kk/workflow-scheduler/internal/tiles"
)

// CellSegmentationWorker runs the tiled cell segmentation pipeline: plan
// the tile grid, run the shared analyzer over every tile in order, translate
// tile-local detections into global full-resolution coordinates, and render
// the low-resolution mask and overlay artifacts.
//
// Tiles are processed sequentially on the job's own worker goroutine; cells
// straddling tile boundaries are not deduplicated here.
type CellSegmentationWorker struct {
	slides   interfaces.SlideOpener
	analyzer *AnalyzerProvider
	results  interfaces.ResultStore
	progress interfaces.JobProgress
	events   interfaces.EventService
	cfg      common.RuntimeConfig
	logger   arbor.ILogger
}

// NewCellSegmentationWorker creates the cell segmentation worker.
func NewCellSegmentationWorker(
	slides interfaces.SlideOpener,
	analyzer *AnalyzerProvider,
	results interfaces.ResultStore,
	progress interfaces.JobProgress,
	events interfaces.EventService,
	cfg common.RuntimeConfig,
	logger arbor.ILogger,
) *CellSegmentationWorker {
	return &CellSegmentationWorker{
		slides:   slides,
		analyzer: analyzer,
		results:  results,
		progress: progress,
		events:   events,
		cfg:      cfg,
		logger:   logger,
	}
}

// Type implements interfaces.JobWorker.
func (w *CellSegmentationWorker) Type() models.JobType {
	return models.JobTypeCellSegmentation
}

// Execute implements interfaces.JobWorker.
func (w *CellSegmentationWorker) Execute(ctx context.Context, job *models.Job) error {
	wsiPath, ok := job.GetParamString("wsi_path")
	if !ok || wsiPath == "" {
		return fmt.Errorf("%w: wsi_path parameter is required", models.ErrSourceUnavailable)
	}

	tileSize := w.cfg.TileSize
	if v, ok := job.GetParamInt("tile_size"); ok {
		tileSize = v
	}
	overlap := w.cfg.Overlap
	if v, ok := job.GetParamInt("overlap"); ok {
		overlap = v
	}
	pixelSizeUm := w.cfg.PixelSizeUm
	if v, ok := job.GetParamFloat("pixel_size_um"); ok {
		pixelSizeUm = v
	}
	maxTiles := 0
	if v, ok := job.GetParamInt("max_tiles"); ok {
		maxTiles = v
	}

	slide, err := w.slides.Open(wsiPath)
	if err != nil {
		return err
	}
	defer slide.Close()

	fullW, fullH := slide.Dimensions()
	grid, err := tiles.Plan(fullW, fullH, tileSize, overlap)
	if err != nil {
		return err
	}
	if maxTiles > 0 && len(grid) > maxTiles {
		grid = grid[:maxTiles]
	}

	snapshot, err := w.progress.SetTilesTotal(job.ID, len(grid))
	if err != nil {
		return err
	}
	if err := w.results.SaveProgress(snapshot); err != nil {
		return err
	}

	w.logger.Info().
		Str("job_id", job.ID).
		Str("wsi_path", wsiPath).
		Int("width", fullW).
		Int("height", fullH).
		Int("tiles", len(grid)).
		Msg("Cell segmentation started")

	analyzer, err := w.analyzer.Get()
	if err != nil {
		return err
	}

	cells := make([]models.CellDetection, 0)
	for index, tile := range grid {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("job interrupted by shutdown: %w", err)
		}

		tilePixels, err := slide.ReadRegion(tile.X, tile.Y, 0, tile.W, tile.H)
		if err != nil {
			return fmt.Errorf("%w: reading tile %d at (%d,%d): %v", models.ErrSourceUnavailable, index, tile.X, tile.Y, err)
		}

		labelImg, err := analyzer.Analyze(tilePixels, pixelSizeUm)
		if err != nil {
			return fmt.Errorf("%w: tile %d: %v", models.ErrAnalyzerFailure, index, err)
		}
		labels, err := labelImg.Labels()
		if err != nil {
			return fmt.Errorf("%w: tile %d: %v", models.ErrAnalyzerFailure, index, err)
		}

		for _, region := range models.RegionsOf(labels) {
			cells = append(cells, models.CellDetection{
				BBox: models.BBox{
					XMin: tile.X + region.MinCol,
					YMin: tile.Y + region.MinRow,
					XMax: tile.X + region.MaxCol,
					YMax: tile.Y + region.MaxRow,
				},
				AreaPixels: region.AreaPixels,
				TileIndex:  index,
				TileOrigin: [2]int{tile.X, tile.Y},
			})
		}

		snapshot, err = w.progress.TileDone(job.ID)
		if err != nil {
			return err
		}
		if err := w.results.SaveProgress(snapshot); err != nil {
			return err
		}
		w.publishProgress(ctx, snapshot)
	}

	level := slide.LevelCount() - 1
	lw, lh := slide.LevelDimensions(level)
	base, err := slide.ReadRegion(0, 0, level, lw, lh)
	if err != nil {
		return fmt.Errorf("%w: reading level %d: %v", models.ErrSourceUnavailable, level, err)
	}

	mask := RenderCellMask(cells, fullW, fullH, lw, lh)
	overlay := RenderOverlay(base, mask)

	if err := w.results.SaveArtifact(job.ID, "mask.png", mask); err != nil {
		return err
	}
	if err := w.results.SaveArtifact(job.ID, "overlay.png", overlay); err != nil {
		return err
	}

	payload := &models.CellSegmentationResult{
		Type:           "cell_segmentation",
		WSIPath:        wsiPath,
		PixelSizeUm:    pixelSizeUm,
		TilesProcessed: len(grid),
		NumCells:       len(cells),
		Cells:          cells,
		MaskPNG:        w.results.ArtifactURL(job.ID, "mask.png"),
		OverlayPNG:     w.results.ArtifactURL(job.ID, "overlay.png"),
	}
	if err := w.results.SaveResult(job, payload); err != nil {
		return err
	}

	w.logger.Info().
		Str("job_id", job.ID).
		Int("tiles_processed", len(grid)).
		Int("num_cells", len(cells)).
		Msg("Cell segmentation finished")

	return nil
}

func (w *CellSegmentationWorker) publishProgress(ctx context.Context, job *models.Job) {
	if w.events == nil {
		return
	}
	_ = w.events.Publish(ctx, interfaces.Event{
		Type: interfaces.EventJobProgress,
		Payload: map[string]interface{}{
			"job_id":      job.ID,
			"tiles_done":  job.TilesDone,
			"tiles_total": job.TilesTotal,
			"progress":    job.Progress,
		},
	})
}
