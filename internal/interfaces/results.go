package interfaces

import (
	"encoding/json"
	"image"

	"github.com/martien2kk/workflow-scheduler/internal/models"
)

// ResultStore is the persistence sink for job progress, results and image
// artifacts. Writes must be atomic enough that the HTTP result endpoints
// never observe partial files (write-then-rename).
type ResultStore interface {
	// SaveProgress writes the small progress sidecar for a job.
	SaveProgress(job *models.Job) error

	// SaveResult writes the final result payload for a job.
	SaveResult(job *models.Job, payload interface{}) error

	// SaveArtifact encodes img as PNG under the job's output directory.
	SaveArtifact(jobID, name string, img image.Image) error

	// ArtifactPath returns the filesystem path of a named artifact.
	ArtifactPath(jobID, name string) string

	// ArtifactURL returns the URL path a client uses to fetch the artifact.
	ArtifactURL(jobID, name string) string

	// LoadResult reads back a persisted result payload. Returns
	// models.ErrNotFound when the job never produced one.
	LoadResult(jobID string) (json.RawMessage, error)
}
