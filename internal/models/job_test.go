package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobStatus_IsTerminal(t *testing.T) {
	assert.False(t, JobStatusPending.IsTerminal())
	assert.False(t, JobStatusRunning.IsTerminal())
	assert.True(t, JobStatusSucceeded.IsTerminal())
	assert.True(t, JobStatusFailed.IsTerminal())
	assert.True(t, JobStatusCancelled.IsTerminal())
}

func TestJob_ParamAccessorsHandleJSONNumbers(t *testing.T) {
	// Params arriving over HTTP decode numbers as float64.
	var params map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(`{
		"wsi_path": "/slides/a.png",
		"tile_size": 256,
		"pixel_size_um": 0.25,
		"max_tiles": 5,
		"unknown_key": {"nested": true}
	}`), &params))

	job := &Job{Params: params}

	path, ok := job.GetParamString("wsi_path")
	assert.True(t, ok)
	assert.Equal(t, "/slides/a.png", path)

	tileSize, ok := job.GetParamInt("tile_size")
	assert.True(t, ok)
	assert.Equal(t, 256, tileSize)

	pixelSize, ok := job.GetParamFloat("pixel_size_um")
	assert.True(t, ok)
	assert.Equal(t, 0.25, pixelSize)

	_, ok = job.GetParamInt("missing")
	assert.False(t, ok)
	_, ok = job.GetParamString("tile_size")
	assert.False(t, ok, "type mismatch is not coerced")

	// Unknown keys are preserved but ignored.
	_, present := job.Params["unknown_key"]
	assert.True(t, present)
}

func TestJob_CloneIsIndependent(t *testing.T) {
	job := &Job{ID: "job_1", Status: JobStatusRunning, TilesDone: 3}
	clone := job.Clone()
	clone.TilesDone = 9
	clone.Status = JobStatusFailed
	assert.Equal(t, 3, job.TilesDone)
	assert.Equal(t, JobStatusRunning, job.Status)
}
