package badger

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/martien2kk/workflow-scheduler/internal/interfaces"
	"github.com/martien2kk/workflow-scheduler/internal/models"
)

// ArchiveStorage implements the ArchiveStorage interface for Badger.
// Terminal job records are upserted once per job and kept until the
// maintenance sweep prunes them past the retention window.
type ArchiveStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewArchiveStorage creates a new ArchiveStorage instance
func NewArchiveStorage(db *BadgerDB, logger arbor.ILogger) interfaces.ArchiveStorage {
	return &ArchiveStorage{
		db:     db,
		logger: logger,
	}
}

// SaveRecord upserts a terminal job record.
func (s *ArchiveStorage) SaveRecord(ctx context.Context, record *interfaces.JobRecord) error {
	if record.ID == "" {
		return fmt.Errorf("job record ID is required")
	}
	if err := s.db.Store().Upsert(record.ID, record); err != nil {
		return fmt.Errorf("failed to save job record: %w", err)
	}
	return nil
}

// GetRecord fetches one archived record by job id.
func (s *ArchiveStorage) GetRecord(ctx context.Context, jobID string) (*interfaces.JobRecord, error) {
	var record interfaces.JobRecord
	if err := s.db.Store().Get(jobID, &record); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("job record %s: %w", jobID, models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get job record: %w", err)
	}
	return &record, nil
}

// ListRecordsForUser returns the user's archived records, newest first.
func (s *ArchiveStorage) ListRecordsForUser(ctx context.Context, userID string, limit int) ([]*interfaces.JobRecord, error) {
	query := badgerhold.Where("UserID").Eq(userID).SortBy("ArchivedAt").Reverse()
	if limit > 0 {
		query = query.Limit(limit)
	}

	var records []interfaces.JobRecord
	if err := s.db.Store().Find(&records, query); err != nil {
		return nil, fmt.Errorf("failed to list job records: %w", err)
	}

	out := make([]*interfaces.JobRecord, len(records))
	for i := range records {
		out[i] = &records[i]
	}
	return out, nil
}

// DeleteRecordsBefore removes records archived before the cutoff. Returns
// the number of deleted records.
func (s *ArchiveStorage) DeleteRecordsBefore(ctx context.Context, cutoff time.Time) (int, error) {
	var records []interfaces.JobRecord
	if err := s.db.Store().Find(&records, badgerhold.Where("ArchivedAt").Lt(cutoff)); err != nil {
		return 0, fmt.Errorf("failed to find stale job records: %w", err)
	}

	deleted := 0
	for i := range records {
		if err := s.db.Store().Delete(records[i].ID, &interfaces.JobRecord{}); err != nil {
			s.logger.Warn().Err(err).Str("job_id", records[i].ID).Msg("Failed to delete stale job record")
			continue
		}
		deleted++
	}
	return deleted, nil
}
