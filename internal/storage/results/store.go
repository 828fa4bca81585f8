// -----------------------------------------------------------------------
// Result Store - filesystem persistence for job outputs
// -----------------------------------------------------------------------

package results

import (
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"

	"github.com/ternarybob/arbor"

	"github.com/martien2kk/workflow-scheduler/internal/interfaces"
	"github.com/martien2kk/workflow-scheduler/internal/models"
)

// Store persists progress sidecars, result payloads and PNG artifacts under
// <baseDir>/<job_id>/. Every write goes through write-then-rename so that
// the HTTP result endpoints never observe a partial file.
type Store struct {
	baseDir string
	logger  arbor.ILogger
}

// New creates the filesystem result store rooted at baseDir.
func New(baseDir string, logger arbor.ILogger) (*Store, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory %s: %w", baseDir, err)
	}
	return &Store{baseDir: baseDir, logger: logger}, nil
}

// BaseDir returns the root output directory (served at /outputs/).
func (s *Store) BaseDir() string {
	return s.baseDir
}

// progressSidecar is the small JSON document written after every tile and
// on termination.
type progressSidecar struct {
	Status     models.JobStatus `json:"status"`
	Progress   float64          `json:"progress"`
	TilesDone  int              `json:"tiles_done"`
	TilesTotal int              `json:"tiles_total"`
	Error      string           `json:"error,omitempty"`
}

// SaveProgress implements interfaces.ResultStore.
func (s *Store) SaveProgress(job *models.Job) error {
	sidecar := progressSidecar{
		Status:     job.Status,
		Progress:   job.Progress,
		TilesDone:  job.TilesDone,
		TilesTotal: job.TilesTotal,
		Error:      job.Error,
	}
	data, err := json.MarshalIndent(sidecar, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: marshal progress: %v", models.ErrPersistenceFailure, err)
	}
	return s.writeFileAtomic(job.ID, "progress.json", data)
}

// SaveResult implements interfaces.ResultStore.
func (s *Store) SaveResult(job *models.Job, payload interface{}) error {
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: marshal result: %v", models.ErrPersistenceFailure, err)
	}
	return s.writeFileAtomic(job.ID, "result.json", data)
}

// SaveArtifact implements interfaces.ResultStore.
func (s *Store) SaveArtifact(jobID, name string, img image.Image) error {
	dir, err := s.jobDir(jobID)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, name+".tmp-*")
	if err != nil {
		return fmt.Errorf("%w: create temp artifact: %v", models.ErrPersistenceFailure, err)
	}
	defer os.Remove(tmp.Name())

	if err := png.Encode(tmp, img); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: encode %s: %v", models.ErrPersistenceFailure, name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: close temp artifact: %v", models.ErrPersistenceFailure, err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(dir, name)); err != nil {
		return fmt.Errorf("%w: rename %s: %v", models.ErrPersistenceFailure, name, err)
	}
	return nil
}

// ArtifactPath implements interfaces.ResultStore.
func (s *Store) ArtifactPath(jobID, name string) string {
	return filepath.Join(s.baseDir, jobID, name)
}

// ArtifactURL implements interfaces.ResultStore.
func (s *Store) ArtifactURL(jobID, name string) string {
	return "/outputs/" + jobID + "/" + name
}

// LoadResult implements interfaces.ResultStore.
func (s *Store) LoadResult(jobID string) (json.RawMessage, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, jobID, "result.json"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("result for job %s: %w", jobID, models.ErrNotFound)
		}
		return nil, fmt.Errorf("%w: read result: %v", models.ErrPersistenceFailure, err)
	}
	return json.RawMessage(data), nil
}

func (s *Store) jobDir(jobID string) (string, error) {
	dir := filepath.Join(s.baseDir, jobID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("%w: create job directory: %v", models.ErrPersistenceFailure, err)
	}
	return dir, nil
}

func (s *Store) writeFileAtomic(jobID, name string, data []byte) error {
	dir, err := s.jobDir(jobID)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, name+".tmp-*")
	if err != nil {
		return fmt.Errorf("%w: create temp file: %v", models.ErrPersistenceFailure, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: write %s: %v", models.ErrPersistenceFailure, name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: close temp file: %v", models.ErrPersistenceFailure, err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(dir, name)); err != nil {
		return fmt.Errorf("%w: rename %s: %v", models.ErrPersistenceFailure, name, err)
	}
	return nil
}

var _ interfaces.ResultStore = (*Store)(nil)
