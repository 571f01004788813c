package exchangelog

import (
	"context"
	"encoding/json"

	"github.com/vendeza/Glavred/internal/analyzer"
)

// RecordingClient wraps an analyzer.Client and records every exchange.
// Recording is best-effort: a logging failure never fails the call.
type RecordingClient struct {
	inner analyzer.Client
	log   *Log
}

// Wrap returns a client that records exchanges to log. A nil log returns the
// inner client unchanged.
func Wrap(inner analyzer.Client, log *Log) analyzer.Client {
	if log == nil {
		return inner
	}
	return &RecordingClient{inner: inner, log: log}
}

// Analyze forwards to the inner client and records the exchange.
func (c *RecordingClient) Analyze(ctx context.Context, req *analyzer.AnalyzeRequest) (*analyzer.AnalyzeResponse, error) {
	resp, err := c.inner.Analyze(ctx, req)
	c.record(ctx, "analyze", req, responseJSON(resp), err)
	return resp, err
}

// ApplyChanges forwards to the inner client and records the exchange.
func (c *RecordingClient) ApplyChanges(ctx context.Context, req *analyzer.ApplyChangesRequest) (*analyzer.ApplyChangesResponse, error) {
	resp, err := c.inner.ApplyChanges(ctx, req)
	c.record(ctx, "applyChanges", req, responseJSON(resp), err)
	return resp, err
}

func (c *RecordingClient) record(ctx context.Context, function string, req any, resp json.RawMessage, callErr error) {
	entry := Entry{Function: function, Response: resp}
	if data, err := json.Marshal(req); err == nil {
		entry.Request = data
	}
	if callErr != nil {
		entry.Err = callErr.Error()
	}
	_ = c.log.Record(ctx, entry)
}

func responseJSON(resp any) json.RawMessage {
	switch v := resp.(type) {
	case *analyzer.AnalyzeResponse:
		if v == nil {
			return nil
		}
	case *analyzer.ApplyChangesResponse:
		if v == nil {
			return nil
		}
	}
	data, err := json.Marshal(resp)
	if err != nil {
		return nil
	}
	return data
}
