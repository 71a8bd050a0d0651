// Package upstream is the HTTP client for the remote commerce API. Every
// response arrives in the {statusCode, data, errorMessage} envelope; the
// client unwraps it, treating statusCode 200 (201 for creation endpoints)
// as success and anything else as a user-facing error string.
//
// There is no retry logic: every failure is terminal for that attempt and
// the caller (usually the customer) re-triggers the action.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// GenericErrorMessage is shown when the envelope carries no error message.
const GenericErrorMessage = "an unexpected error occurred"

// APIError is a non-success envelope from the commerce API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return GenericErrorMessage
}

// Config configures the upstream client.
type Config struct {
	// BaseURL is the commerce API root, e.g. https://api.example.com/v1.
	BaseURL string
	// Timeout bounds each request. Zero means 10 seconds.
	Timeout time.Duration
}

// Client talks to the commerce API.
type Client struct {
	base string
	http *http.Client
}

// New creates a Client with an otel-instrumented transport.
func New(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		base: strings.TrimRight(cfg.BaseURL, "/"),
		http: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

// do performs a request and unwraps the response envelope. The data payload
// is decoded into out when out is non-nil. wantCode is the envelope
// statusCode treated as success.
func (c *Client) do(ctx context.Context, method, path string, body, out any, wantCode int) error {
	var reqBody io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "encode request")
		}
		reqBody = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reqBody)
	if err != nil {
		return errors.Wrap(err, "build request")
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrap(err, "do request")
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "read response")
	}

	env, err := decodeEnvelope(raw)
	if err != nil {
		return errors.Wrap(err, "decode envelope")
	}

	if env.statusCode != wantCode {
		return &APIError{StatusCode: env.statusCode, Message: env.errorMessage}
	}

	if out != nil && len(env.data) > 0 {
		if err := json.Unmarshal(env.data, out); err != nil {
			return errors.Wrap(err, "decode data")
		}
	}
	return nil
}

// envelope is the decoded commerce API response wrapper.
type envelope struct {
	statusCode   int
	errorMessage string
	data         []byte
}

// decodeEnvelope extracts statusCode, errorMessage, and the raw data field
// without decoding the payload itself.
func decodeEnvelope(raw []byte) (envelope, error) {
	var env envelope
	d := jx.DecodeBytes(raw)
	err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "statusCode":
			n, err := d.Int()
			if err != nil {
				return errors.Wrap(err, "statusCode")
			}
			env.statusCode = n
		case "errorMessage":
			if d.Next() == jx.Null {
				return d.Null()
			}
			s, err := d.Str()
			if err != nil {
				return errors.Wrap(err, "errorMessage")
			}
			env.errorMessage = s
		case "data":
			r, err := d.Raw()
			if err != nil {
				return errors.Wrap(err, "data")
			}
			if string(r) != "null" {
				env.data = append([]byte(nil), r...)
			}
		default:
			return d.Skip()
		}
		return nil
	})
	if err != nil {
		return envelope{}, err
	}
	return env, nil
}
