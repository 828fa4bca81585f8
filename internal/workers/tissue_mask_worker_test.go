package workers

import (
	"context"
	"encoding/json"
	"errors"
	"image/color"
	"image/png"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/martien2kk/workflow-scheduler/internal/common"
	"github.com/martien2kk/workflow-scheduler/internal/models"
	"github.com/martien2kk/workflow-scheduler/internal/state"
	"github.com/martien2kk/workflow-scheduler/internal/storage/results"
)

func runningTissueJob(t *testing.T, store *state.Store, params map[string]interface{}) *models.Job {
	t.Helper()
	wf, err := store.CreateWorkflow("alice", &models.WorkflowSpec{
		Name: "w",
		Branches: []models.BranchSpec{
			{BranchID: "b1", Jobs: []models.JobSpec{{JobType: models.JobTypeTissueMask, Params: params}}},
		},
	})
	require.NoError(t, err)
	admitted := store.AdmitEligible(4, 3)
	require.Len(t, admitted, 1)
	require.Equal(t, wf.JobIDs[0], admitted[0].ID)
	return admitted[0]
}

func TestTissueMask_SeparatesDarkTissueFromBrightBackground(t *testing.T) {
	logger := common.GetLogger()
	store := state.New(logger)
	resultStore, err := results.New(t.TempDir(), logger)
	require.NoError(t, err)

	// Coarse level: left half dark tissue, right half bright glass.
	slide := newFakeSlide(200, 100, 20, 10, color.NRGBA{R: 240, G: 240, B: 240, A: 255})
	coarse := slide.levels[1]
	for y := 0; y < 10; y++ {
		for x := 0; x < 10; x++ {
			coarse.SetNRGBA(x, y, color.NRGBA{R: 120, G: 40, B: 90, A: 255})
		}
	}

	opener := &fakeOpener{path: "/slides/t.png", slide: slide}
	worker := NewTissueMaskWorker(opener, resultStore, common.RuntimeConfig{}, logger)

	job := runningTissueJob(t, store, map[string]interface{}{"wsi_path": "/slides/t.png"})
	require.NoError(t, worker.Execute(context.Background(), job))

	// tiles_total stays zero for the untiled pipeline.
	snapshot, err := store.GetJob("alice", job.ID)
	require.NoError(t, err)
	assert.Zero(t, snapshot.TilesTotal)
	assert.Zero(t, snapshot.TilesDone)

	maskFile, err := os.Open(resultStore.ArtifactPath(job.ID, "tissue_mask.png"))
	require.NoError(t, err)
	defer maskFile.Close()
	maskImg, err := png.Decode(maskFile)
	require.NoError(t, err)

	bounds := maskImg.Bounds()
	assert.Equal(t, 20, bounds.Dx())
	assert.Equal(t, 10, bounds.Dy())

	// Dark half is tissue, bright half is background.
	darkR, _, _, _ := maskImg.At(3, 5).RGBA()
	brightR, _, _, _ := maskImg.At(15, 5).RGBA()
	assert.Equal(t, uint32(0xffff), darkR)
	assert.Equal(t, uint32(0), brightR)

	raw, err := resultStore.LoadResult(job.ID)
	require.NoError(t, err)
	var payload models.TissueMaskResult
	require.NoError(t, json.Unmarshal(raw, &payload))
	assert.Equal(t, "tissue_mask", payload.Type)
	assert.Equal(t, "/outputs/"+job.ID+"/tissue_mask.png", payload.TissueMaskPNG)
	assert.Equal(t, "/outputs/"+job.ID+"/tissue_overlay.png", payload.TissueOverlayPNG)

	_, err = os.Stat(resultStore.ArtifactPath(job.ID, "tissue_overlay.png"))
	assert.NoError(t, err)
}

func TestTissueMask_MissingSourceFails(t *testing.T) {
	logger := common.GetLogger()
	store := state.New(logger)
	resultStore, err := results.New(t.TempDir(), logger)
	require.NoError(t, err)

	opener := &fakeOpener{path: "/slides/t.png", slide: newFakeSlide(10, 10, 5, 5, color.NRGBA{A: 255})}
	worker := NewTissueMaskWorker(opener, resultStore, common.RuntimeConfig{}, logger)

	job := runningTissueJob(t, store, map[string]interface{}{"wsi_path": "/gone.svs"})
	err = worker.Execute(context.Background(), job)
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrSourceUnavailable))
}

func TestOtsuThreshold_Bimodal(t *testing.T) {
	// Two well-separated classes around 0.2 and 0.8.
	gray := make([][]float64, 10)
	for y := range gray {
		row := make([]float64, 10)
		for x := range row {
			if x < 5 {
				row[x] = 0.2
			} else {
				row[x] = 0.8
			}
		}
		gray[y] = row
	}
	threshold, ok := OtsuThreshold(gray)
	require.True(t, ok)
	assert.Greater(t, threshold, 0.2)
	assert.Less(t, threshold, 0.8)
}

func TestOtsuThreshold_DegenerateHistogram(t *testing.T) {
	_, ok := OtsuThreshold(nil)
	assert.False(t, ok)

	uniform := [][]float64{{0.5, 0.5}, {0.5, 0.5}}
	_, ok = OtsuThreshold(uniform)
	assert.False(t, ok)
}
