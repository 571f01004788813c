package analyzer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Default function names exposed by the evaluator backend.
const (
	DefaultAnalyzeFunction = "buildSocialPostEvaluationPrompt"
	DefaultApplyFunction   = "applyPostChanges"
)

const defaultCallTimeout = 60 * time.Second

// CallableClient talks to the evaluator over the HTTPS-callable protocol:
// POST <base>/<function> with {"data": <request>}, answered with either
// {"result": <response>} or {"error": {"message", "status"}}.
type CallableClient struct {
	baseURL         string
	analyzeFunction string
	applyFunction   string
	httpClient      *http.Client
}

// CallableOption configures a CallableClient.
type CallableOption func(*CallableClient)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) CallableOption {
	return func(c *CallableClient) { c.httpClient = hc }
}

// WithTimeout sets the per-call timeout. Callers can still shorten individual
// calls through the context.
func WithTimeout(d time.Duration) CallableOption {
	return func(c *CallableClient) { c.httpClient.Timeout = d }
}

// WithFunctionNames overrides the function names called for analyze and
// applyChanges.
func WithFunctionNames(analyze, apply string) CallableOption {
	return func(c *CallableClient) {
		c.analyzeFunction = analyze
		c.applyFunction = apply
	}
}

// NewCallableClient creates a client for the evaluator hosted at baseURL.
func NewCallableClient(baseURL string, opts ...CallableOption) *CallableClient {
	c := &CallableClient{
		baseURL:         baseURL,
		analyzeFunction: DefaultAnalyzeFunction,
		applyFunction:   DefaultApplyFunction,
		httpClient:      &http.Client{Timeout: defaultCallTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Analyze invokes the analyze function.
func (c *CallableClient) Analyze(ctx context.Context, req *AnalyzeRequest) (*AnalyzeResponse, error) {
	var resp AnalyzeResponse
	if err := c.call(ctx, c.analyzeFunction, req, &resp); err != nil {
		return nil, err
	}
	if resp.Result != ResultOK {
		return nil, fmt.Errorf("%s: unexpected result %q", c.analyzeFunction, resp.Result)
	}
	return &resp, nil
}

// ApplyChanges invokes the applyChanges function.
func (c *CallableClient) ApplyChanges(ctx context.Context, req *ApplyChangesRequest) (*ApplyChangesResponse, error) {
	if err := validateApply(req); err != nil {
		return nil, err
	}
	var resp ApplyChangesResponse
	if err := c.call(ctx, c.applyFunction, req, &resp); err != nil {
		return nil, err
	}
	if resp.Result != ResultOK {
		return nil, fmt.Errorf("%s: unexpected result %q", c.applyFunction, resp.Result)
	}
	return &resp, nil
}

// callableEnvelope is the wire framing of the callable protocol.
type callableEnvelope struct {
	Result json.RawMessage `json:"result"`
	Error  *struct {
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

func (c *CallableClient) call(ctx context.Context, function string, payload, out any) error {
	body, err := json.Marshal(map[string]any{"data": payload})
	if err != nil {
		return fmt.Errorf("encode %s request: %w", function, err)
	}

	url := c.baseURL + "/" + function
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build %s request: %w", function, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("call %s: %w", function, err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return fmt.Errorf("read %s response: %w", function, err)
	}

	// Callable errors arrive as an error envelope, usually with a non-2xx
	// status. Prefer the envelope's message when one is present.
	var envelope callableEnvelope
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		if httpResp.StatusCode != http.StatusOK {
			return fmt.Errorf("call %s: unexpected status %d", function, httpResp.StatusCode)
		}
		return fmt.Errorf("decode %s response: %w", function, err)
	}
	if envelope.Error != nil {
		return &CallError{Function: function, Status: envelope.Error.Status, Message: envelope.Error.Message}
	}
	if httpResp.StatusCode != http.StatusOK {
		return fmt.Errorf("call %s: unexpected status %d", function, httpResp.StatusCode)
	}
	if len(envelope.Result) == 0 || string(envelope.Result) == "null" {
		return fmt.Errorf("%s returned an empty response", function)
	}
	if err := json.Unmarshal(envelope.Result, out); err != nil {
		return fmt.Errorf("decode %s result: %w", function, err)
	}
	return nil
}
