package apify

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClient implements Client for testing poll functions.
type fakeClient struct {
	startFunc func(ctx context.Context, actorID string, input any) (*Run, error)
	getFunc   func(ctx context.Context, id string) (*Run, error)
	itemsFunc func(ctx context.Context, datasetID string, limit int) ([]json.RawMessage, error)
}

func (f *fakeClient) StartRun(ctx context.Context, actorID string, input any) (*Run, error) {
	return f.startFunc(ctx, actorID, input)
}

func (f *fakeClient) GetRun(ctx context.Context, id string) (*Run, error) {
	return f.getFunc(ctx, id)
}

func (f *fakeClient) DatasetItems(ctx context.Context, datasetID string, limit int) ([]json.RawMessage, error) {
	return f.itemsFunc(ctx, datasetID, limit)
}

func TestWaitForRun_AlreadyFinished(t *testing.T) {
	fc := &fakeClient{
		getFunc: func(context.Context, string) (*Run, error) {
			t.Fatal("GetRun should not be called for a finished run")
			return nil, nil
		},
	}
	run, err := WaitForRun(context.Background(), fc, &Run{ID: "r", Status: StatusSucceeded})
	require.NoError(t, err)
	assert.Equal(t, "r", run.ID)
}

func TestWaitForRun_PollsUntilSucceeded(t *testing.T) {
	var calls atomic.Int32
	fc := &fakeClient{
		getFunc: func(_ context.Context, id string) (*Run, error) {
			if calls.Add(1) < 3 {
				return &Run{ID: id, Status: StatusRunning}, nil
			}
			return &Run{ID: id, Status: StatusSucceeded, DefaultDatasetID: "ds"}, nil
		},
	}

	run, err := WaitForRun(context.Background(), fc, &Run{ID: "r", Status: StatusReady},
		WithPollInterval(time.Millisecond))
	require.NoError(t, err)
	assert.Equal(t, "ds", run.DefaultDatasetID)
	assert.Equal(t, int32(3), calls.Load())
}

func TestWaitForRun_FailedStatus(t *testing.T) {
	fc := &fakeClient{
		getFunc: func(_ context.Context, id string) (*Run, error) {
			return &Run{ID: id, Status: StatusTimedOut}, nil
		},
	}

	_, err := WaitForRun(context.Background(), fc, &Run{ID: "r", Status: StatusRunning},
		WithPollInterval(time.Millisecond))
	var rf *RunFailedError
	require.ErrorAs(t, err, &rf)
	assert.Equal(t, StatusTimedOut, rf.Status)
}

func TestWaitForRun_Timeout(t *testing.T) {
	fc := &fakeClient{
		getFunc: func(_ context.Context, id string) (*Run, error) {
			return &Run{ID: id, Status: StatusRunning}, nil
		},
	}

	_, err := WaitForRun(context.Background(), fc, &Run{ID: "r", Status: StatusRunning},
		WithPollInterval(time.Millisecond), WithPollCap(2*time.Millisecond), WithPollTimeout(20*time.Millisecond))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timed out")
}

func TestRunActor(t *testing.T) {
	fc := &fakeClient{
		startFunc: func(_ context.Context, actorID string, _ any) (*Run, error) {
			assert.Equal(t, "quacker/twitter-scraper", actorID)
			return &Run{ID: "r", Status: StatusSucceeded, DefaultDatasetID: "ds-x"}, nil
		},
		itemsFunc: func(_ context.Context, datasetID string, limit int) ([]json.RawMessage, error) {
			assert.Equal(t, "ds-x", datasetID)
			assert.Equal(t, 5, limit)
			return []json.RawMessage{json.RawMessage(`{"followersCount":10}`)}, nil
		},
	}

	items, err := RunActor(context.Background(), fc, "quacker/twitter-scraper", map[string]any{"handles": []string{"acme"}}, 5)
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestRunActor_StartError(t *testing.T) {
	fc := &fakeClient{
		startFunc: func(context.Context, string, any) (*Run, error) {
			return nil, errors.New("boom")
		},
	}
	_, err := RunActor(context.Background(), fc, "a/b", nil, 5)
	require.EqualError(t, err, "boom")
}
