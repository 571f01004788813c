package exchangelog

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vendeza/Glavred/internal/analyzer"
	"github.com/vendeza/Glavred/internal/models"
)

func openTestLog(t *testing.T) *Log {
	t.Helper()
	log, err := Open(filepath.Join(t.TempDir(), "exchanges.db"))
	require.NoError(t, err)
	t.Cleanup(func() { log.Close() })
	return log
}

func TestRecordAndRecent(t *testing.T) {
	log := openTestLog(t)
	ctx := context.Background()

	require.NoError(t, log.Record(ctx, Entry{
		Function: "analyze",
		Request:  json.RawMessage(`{"post":"first"}`),
		Response: json.RawMessage(`{"result":"OK"}`),
	}))
	require.NoError(t, log.Record(ctx, Entry{
		Function: "applyChanges",
		Request:  json.RawMessage(`{"post":"second"}`),
		Err:      "upstream failure",
	}))

	entries, err := log.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	// Newest first.
	assert.Equal(t, "applyChanges", entries[0].Function)
	assert.Equal(t, "upstream failure", entries[0].Err)
	assert.Nil(t, entries[0].Response)

	assert.Equal(t, "analyze", entries[1].Function)
	assert.JSONEq(t, `{"post":"first"}`, string(entries[1].Request))
	assert.JSONEq(t, `{"result":"OK"}`, string(entries[1].Response))
	assert.NotEmpty(t, entries[1].ID)
	assert.False(t, entries[1].CreatedAt.IsZero())
}

func TestRecent_Limit(t *testing.T) {
	log := openTestLog(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, log.Record(ctx, Entry{Function: "analyze", Request: json.RawMessage(`{}`)}))
	}

	entries, err := log.Recent(ctx, 3)
	require.NoError(t, err)
	assert.Len(t, entries, 3)
}

type stubClient struct {
	analyzeErr error
}

func (s *stubClient) Analyze(ctx context.Context, req *analyzer.AnalyzeRequest) (*analyzer.AnalyzeResponse, error) {
	if s.analyzeErr != nil {
		return nil, s.analyzeErr
	}
	return &analyzer.AnalyzeResponse{Result: analyzer.ResultOK, Evaluation: models.Evaluation{Post: req.Post}}, nil
}

func (s *stubClient) ApplyChanges(ctx context.Context, req *analyzer.ApplyChangesRequest) (*analyzer.ApplyChangesResponse, error) {
	return &analyzer.ApplyChangesResponse{Result: analyzer.ResultOK, UpdatedPost: req.Post}, nil
}

func TestRecordingClient(t *testing.T) {
	t.Run("records success", func(t *testing.T) {
		log := openTestLog(t)
		client := Wrap(&stubClient{}, log)

		_, err := client.Analyze(context.Background(), &analyzer.AnalyzeRequest{Post: "hello"})
		require.NoError(t, err)

		entries, err := log.Recent(context.Background(), 1)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, "analyze", entries[0].Function)
		assert.Contains(t, string(entries[0].Request), "hello")
		assert.Empty(t, entries[0].Err)
	})

	t.Run("records failure", func(t *testing.T) {
		log := openTestLog(t)
		client := Wrap(&stubClient{analyzeErr: fmt.Errorf("boom")}, log)

		_, err := client.Analyze(context.Background(), &analyzer.AnalyzeRequest{Post: "hello"})
		require.Error(t, err)

		entries, err := log.Recent(context.Background(), 1)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, "boom", entries[0].Err)
	})

	t.Run("nil log passes through", func(t *testing.T) {
		inner := &stubClient{}
		assert.Equal(t, analyzer.Client(inner), Wrap(inner, nil))
	})
}
