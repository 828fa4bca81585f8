package badger

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/martien2kk/workflow-scheduler/internal/common"
	"github.com/martien2kk/workflow-scheduler/internal/interfaces"
	"github.com/martien2kk/workflow-scheduler/internal/models"
)

func newTestArchive(t *testing.T) interfaces.ArchiveStorage {
	t.Helper()
	logger := common.GetLogger()
	db, err := NewBadgerDB(logger, &common.BadgerConfig{
		Path: filepath.Join(t.TempDir(), "archive"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewArchiveStorage(db, logger)
}

func record(id, user string, status models.JobStatus, archivedAt time.Time) *interfaces.JobRecord {
	return &interfaces.JobRecord{
		ID:         id,
		WorkflowID: "wf_1",
		BranchID:   "b1",
		UserID:     user,
		JobType:    models.JobTypeCellSegmentation,
		Status:     status,
		CreatedAt:  archivedAt.Add(-time.Minute),
		ArchivedAt: archivedAt,
	}
}

func TestArchive_SaveAndGet(t *testing.T) {
	archive := newTestArchive(t)
	ctx := context.Background()

	now := time.Now().UTC()
	require.NoError(t, archive.SaveRecord(ctx, record("job_1", "alice", models.JobStatusSucceeded, now)))

	got, err := archive.GetRecord(ctx, "job_1")
	require.NoError(t, err)
	assert.Equal(t, "alice", got.UserID)
	assert.Equal(t, models.JobStatusSucceeded, got.Status)
}

func TestArchive_GetMissingIsNotFound(t *testing.T) {
	archive := newTestArchive(t)
	_, err := archive.GetRecord(context.Background(), "job_missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrNotFound))
}

func TestArchive_ListRecordsForUser(t *testing.T) {
	archive := newTestArchive(t)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, archive.SaveRecord(ctx, record("job_1", "alice", models.JobStatusSucceeded, now.Add(-2*time.Hour))))
	require.NoError(t, archive.SaveRecord(ctx, record("job_2", "alice", models.JobStatusFailed, now.Add(-time.Hour))))
	require.NoError(t, archive.SaveRecord(ctx, record("job_3", "bob", models.JobStatusCancelled, now)))

	records, err := archive.ListRecordsForUser(ctx, "alice", 10)
	require.NoError(t, err)
	require.Len(t, records, 2)

	// Newest first.
	assert.Equal(t, "job_2", records[0].ID)
	assert.Equal(t, "job_1", records[1].ID)

	records, err = archive.ListRecordsForUser(ctx, "bob", 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "job_3", records[0].ID)
}

func TestArchive_DeleteRecordsBefore(t *testing.T) {
	archive := newTestArchive(t)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, archive.SaveRecord(ctx, record("job_old", "alice", models.JobStatusSucceeded, now.Add(-48*time.Hour))))
	require.NoError(t, archive.SaveRecord(ctx, record("job_new", "alice", models.JobStatusSucceeded, now)))

	deleted, err := archive.DeleteRecordsBefore(ctx, now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)

	_, err = archive.GetRecord(ctx, "job_old")
	assert.Error(t, err)
	_, err = archive.GetRecord(ctx, "job_new")
	assert.NoError(t, err)
}
