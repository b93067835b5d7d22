package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"
)

const defaultInvokeTimeout = 60 * time.Second

// HTTPInvoker reaches the wallet engine over its local HTTP endpoint.
// Commands map to POST {base}/invoke/{command} with a JSON body.
type HTTPInvoker struct {
	base   string
	client *http.Client
	log    *slog.Logger
}

var _ Invoker = (*HTTPInvoker)(nil)

// HTTPOption configures an HTTPInvoker.
type HTTPOption func(*HTTPInvoker)

// WithHTTPClient overrides the HTTP client used for engine calls.
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(i *HTTPInvoker) {
		i.client = c
	}
}

// WithLogger sets the structured logger. If not set, a default JSON
// logger writing to stderr is used.
func WithLogger(logger *slog.Logger) HTTPOption {
	return func(i *HTTPInvoker) {
		i.log = logger
	}
}

// NewHTTPInvoker creates an invoker for the engine listening at base,
// e.g. "http://127.0.0.1:17145".
func NewHTTPInvoker(base string, opts ...HTTPOption) *HTTPInvoker {
	i := &HTTPInvoker{
		base:   base,
		client: &http.Client{Timeout: defaultInvokeTimeout},
	}
	for _, opt := range opts {
		opt(i)
	}
	if i.log == nil {
		i.log = slog.New(slog.NewJSONHandler(os.Stderr, nil))
	}
	return i
}

func (i *HTTPInvoker) Invoke(ctx context.Context, command string, req, resp any) error {
	body := []byte("{}")
	if req != nil {
		var err error
		body, err = json.Marshal(req)
		if err != nil {
			return fmt.Errorf("encoding %s request: %w", command, err)
		}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, i.base+"/invoke/"+command, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building %s request: %w", command, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := i.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("invoking %s: %w", command, err)
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return fmt.Errorf("reading %s response: %w", command, err)
	}

	if httpResp.StatusCode != http.StatusOK {
		var engineErr Error
		if err := json.Unmarshal(data, &engineErr); err != nil || engineErr.ExternalMessage == "" {
			return fmt.Errorf("%s failed with status %d", command, httpResp.StatusCode)
		}
		i.log.Warn("engine command failed",
			slog.String("command", command),
			slog.String("error_type", engineErr.Kind),
			slog.String("internal_msg", engineErr.InternalMessage))
		return &engineErr
	}

	if resp == nil {
		return nil
	}
	if err := json.Unmarshal(data, resp); err != nil {
		return fmt.Errorf("decoding %s response: %w", command, err)
	}
	return nil
}
