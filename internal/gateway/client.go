package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/MikeSquared-Agency/sherpa/internal/metrics"
)

const (
	askPath      = "/gpt/ask"
	feedbackPath = "/gpt/feedback"

	// maxErrorBody caps how much of a failed response body is kept on an Error.
	maxErrorBody = 512
)

// ErrEmptyResponse is the cause of an Error for a 2xx reply without a data
// object, such as a JSON null.
var ErrEmptyResponse = errors.New("empty response")

// Client talks to the remote hypothesis service.
type Client struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

// NewClient returns a client rooted at baseURL. A zero timeout means requests
// are bounded only by their context.
func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// Hypothesis is one candidate returned by the service.
type Hypothesis struct {
	Hypothesis string `json:"hypothesis"`
}

type Payload struct {
	Content    string       `json:"content"`
	Hypotheses []Hypothesis `json:"hypotheses"`
}

// Response is the body shared by the ask and feedback endpoints.
type Response struct {
	Data    Payload `json:"data"`
	Message string  `json:"message,omitempty"`
}

// HypothesisTexts returns the hypothesis strings in service order.
func (r *Response) HypothesisTexts() []string {
	out := make([]string, len(r.Data.Hypotheses))
	for i, h := range r.Data.Hypotheses {
		out[i] = h.Hypothesis
	}
	return out
}

type askRequest struct {
	UserPrompt string `json:"userPrompt"`
}

type feedbackRequest struct {
	Feedback   string `json:"feedback"`
	Hypothesis string `json:"hypothesis"`
}

// Error is returned for every failed call. StatusCode is zero when the
// request never produced an HTTP response.
type Error struct {
	Op         string
	StatusCode int
	Body       string
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		if e.Body != "" {
			return fmt.Sprintf("%s: status %d: %s", e.Op, e.StatusCode, e.Body)
		}
		return fmt.Sprintf("%s: status %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Ask sends a user prompt and returns the assistant reply with fresh hypotheses.
func (c *Client) Ask(ctx context.Context, prompt string) (*Response, error) {
	return c.post(ctx, "ask", askPath, askRequest{UserPrompt: prompt})
}

// Feedback sends feedback about one hypothesis and returns the refined reply.
func (c *Client) Feedback(ctx context.Context, feedback, hypothesis string) (*Response, error) {
	return c.post(ctx, "feedback", feedbackPath, feedbackRequest{Feedback: feedback, Hypothesis: hypothesis})
}

func (c *Client) post(ctx context.Context, op, path string, payload any) (*Response, error) {
	start := time.Now()

	resp, outcome, err := c.do(ctx, op, path, payload)
	metrics.ObserveGateway(op, outcome, time.Since(start))
	if err != nil {
		c.logger.Debug("gateway request failed", "op", op, "outcome", outcome, "error", err)
		return nil, err
	}

	c.logger.Debug("gateway response",
		"op", op,
		"hypotheses", len(resp.Data.Hypotheses),
		"elapsed", time.Since(start),
	)
	return resp, nil
}

func (c *Client) do(ctx context.Context, op, path string, payload any) (*Response, string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, metrics.OutcomeBadPayload, &Error{Op: op, Err: fmt.Errorf("marshal request: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, metrics.OutcomeTransport, &Error{Op: op, Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, metrics.OutcomeTransport, &Error{Op: op, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, metrics.OutcomeTransport, &Error{Op: op, Err: fmt.Errorf("read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		excerpt := string(respBody)
		if len(excerpt) > maxErrorBody {
			excerpt = excerpt[:maxErrorBody]
		}
		return nil, metrics.OutcomeHTTPError, &Error{Op: op, StatusCode: resp.StatusCode, Body: excerpt}
	}

	var wire struct {
		Data    *Payload `json:"data"`
		Message string   `json:"message"`
	}
	if err := json.Unmarshal(respBody, &wire); err != nil {
		return nil, metrics.OutcomeBadPayload, &Error{Op: op, Err: fmt.Errorf("unmarshal response: %w", err)}
	}
	if wire.Data == nil {
		return nil, metrics.OutcomeBadPayload, &Error{Op: op, Err: ErrEmptyResponse}
	}
	return &Response{Data: *wire.Data, Message: wire.Message}, metrics.OutcomeOK, nil
}
