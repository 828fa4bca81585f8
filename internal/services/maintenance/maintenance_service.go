// -----------------------------------------------------------------------
// Maintenance Service - cron-driven retention sweeps
// -----------------------------------------------------------------------

package maintenance

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"

	"github.com/martien2kk/workflow-scheduler/internal/common"
	"github.com/martien2kk/workflow-scheduler/internal/interfaces"
)

// Service runs scheduled retention sweeps: output directories and archived
// job records older than the retention window are deleted. Live jobs are
// unaffected because their output directories are younger than any sane
// retention setting.
type Service struct {
	outputsDir string
	archive    interfaces.ArchiveStorage
	cfg        common.MaintenanceConfig
	cron       *cron.Cron
	logger     arbor.ILogger
	entryID    cron.EntryID
	running    bool
}

// NewService creates the maintenance service. The archive may be nil.
func NewService(outputsDir string, archive interfaces.ArchiveStorage, cfg common.MaintenanceConfig, logger arbor.ILogger) *Service {
	return &Service{
		outputsDir: outputsDir,
		archive:    archive,
		cfg:        cfg,
		cron:       cron.New(),
		logger:     logger,
	}
}

// Start registers the sweep with the cron scheduler and starts it.
func (s *Service) Start() error {
	if !s.cfg.Enabled {
		s.logger.Debug().Msg("Maintenance service disabled")
		return nil
	}
	if s.running {
		return fmt.Errorf("maintenance service already running")
	}

	schedule := s.cfg.Schedule
	if schedule == "" {
		schedule = "0 * * * *"
	}

	entryID, err := s.cron.AddFunc(schedule, s.runSweep)
	if err != nil {
		return fmt.Errorf("failed to register maintenance sweep: %w", err)
	}
	s.entryID = entryID

	s.cron.Start()
	s.running = true

	s.logger.Info().
		Str("schedule", schedule).
		Dur("retention", s.cfg.RetentionDuration()).
		Msg("Maintenance service started")
	return nil
}

// Stop halts the cron scheduler and waits for a running sweep to finish.
func (s *Service) Stop() {
	if !s.running {
		return
	}
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.running = false
	s.logger.Info().Msg("Maintenance service stopped")
}

// runSweep executes one retention pass with panic recovery.
func (s *Service) runSweep() {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error().
				Str("panic", fmt.Sprintf("%v", r)).
				Msg("PANIC RECOVERED in maintenance sweep")
		}
	}()

	cutoff := time.Now().Add(-s.cfg.RetentionDuration())
	start := time.Now()

	removedDirs := s.sweepOutputs(cutoff)

	removedRecords := 0
	if s.archive != nil {
		n, err := s.archive.DeleteRecordsBefore(context.Background(), cutoff)
		if err != nil {
			s.logger.Warn().Err(err).Msg("Archive retention sweep failed")
		} else {
			removedRecords = n
		}
	}

	s.logger.Info().
		Int("output_dirs_removed", removedDirs).
		Int("archive_records_removed", removedRecords).
		Dur("duration", time.Since(start)).
		Msg("Maintenance sweep completed")
}

// sweepOutputs deletes per-job output directories whose contents have not
// been modified since the cutoff.
func (s *Service) sweepOutputs(cutoff time.Time) int {
	entries, err := os.ReadDir(s.outputsDir)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn().Err(err).Str("dir", s.outputsDir).Msg("Failed to read outputs directory")
		}
		return 0
	}

	removed := 0
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		dir := filepath.Join(s.outputsDir, entry.Name())
		if s.newestModTime(dir).After(cutoff) {
			continue
		}
		if err := os.RemoveAll(dir); err != nil {
			s.logger.Warn().Err(err).Str("dir", dir).Msg("Failed to remove stale output directory")
			continue
		}
		removed++
	}
	return removed
}

func (s *Service) newestModTime(dir string) time.Time {
	newest := time.Time{}
	_ = filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if info.ModTime().After(newest) {
			newest = info.ModTime()
		}
		return nil
	})
	return newest
}
