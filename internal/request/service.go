package request

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/YanXich/xiaozhi-esp32-server/internal/logging"
)

const (
	// DefaultTimeout is the default HTTP request timeout
	DefaultTimeout = 10 * time.Second

	// DefaultRetryDelay is the delay before the first retry
	DefaultRetryDelay = 1 * time.Second

	// DefaultMaxRetryDelay is the maximum delay for exponential backoff
	DefaultMaxRetryDelay = 30 * time.Second

	// DefaultRetryWindow bounds how long a failing request keeps being retried
	DefaultRetryWindow = 60 * time.Second

	// maxErrorBody caps the response body kept on HTTP errors
	maxErrorBody = 512
)

// Doer is the subset of *http.Client used by the service
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Service performs HTTP exchanges with the backend and owns the retry
// bookkeeping shared by every request sent through it.
type Service struct {
	// HTTPClient is the underlying HTTP client
	HTTPClient Doer

	// Header is added to every request
	Header http.Header

	// RetryDelay is the initial delay between retry attempts
	RetryDelay time.Duration

	// MaxRetryDelay is the maximum delay for exponential backoff
	MaxRetryDelay time.Duration

	// UseExponentialBackoff doubles the delay after every retry
	UseExponentialBackoff bool

	// RetryWindow is how long after the first failure retries stop.
	// Zero retries until the context ends.
	RetryWindow time.Duration

	timer *Timer
}

// NewService creates a request service with default settings
func NewService() *Service {
	return &Service{
		HTTPClient:            &http.Client{Timeout: DefaultTimeout},
		Header:                make(http.Header),
		RetryDelay:            DefaultRetryDelay,
		MaxRetryDelay:         DefaultMaxRetryDelay,
		UseExponentialBackoff: true,
		RetryWindow:           DefaultRetryWindow,
		timer:                 NewTimer(),
	}
}

// SetTimeout sets the HTTP request timeout when the client is an *http.Client
func (s *Service) SetTimeout(timeout time.Duration) {
	if hc, ok := s.HTTPClient.(*http.Client); ok {
		hc.Timeout = timeout
	}
}

// SetRetry configures retry delays and the retry window
func (s *Service) SetRetry(delay, maxDelay, window time.Duration) {
	s.RetryDelay = delay
	s.MaxRetryDelay = maxDelay
	s.RetryWindow = window
}

// Timer returns the request-timing tracker shared by this service
func (s *Service) Timer() *Timer {
	if s.timer == nil {
		s.timer = NewTimer()
	}
	return s.timer
}

// ClearRequestTime ends the current retry sequence. Callers use it after a
// success and after giving up.
func (s *Service) ClearRequestTime() {
	s.Timer().Clear()
}

// SendRequest starts building a request
func (s *Service) SendRequest() *Builder {
	return &Builder{
		service: s,
		method:  http.MethodGet,
	}
}

// Builder collects the parts of a single request and its outcome handlers
type Builder struct {
	service     *Service
	url         string
	method      string
	data        any
	success     func(*Response)
	fail        func(*Response)
	networkFail func(error)
}

// URL sets the absolute request URL
func (b *Builder) URL(u string) *Builder {
	b.url = u
	return b
}

// Method sets the HTTP method (default GET)
func (b *Builder) Method(method string) *Builder {
	b.method = strings.ToUpper(method)
	return b
}

// Data sets the request body. []byte and json.RawMessage are sent as-is,
// anything else is encoded as JSON.
func (b *Builder) Data(data any) *Builder {
	b.data = data
	return b
}

// Success sets the handler for accepted responses
func (b *Builder) Success(fn func(*Response)) *Builder {
	b.success = fn
	return b
}

// Fail sets the handler for responses whose envelope code is non-zero.
// Without it such responses go to the Success handler unchanged.
func (b *Builder) Fail(fn func(*Response)) *Builder {
	b.fail = fn
	return b
}

// NetworkFail sets the handler for transport failures and 5xx responses
func (b *Builder) NetworkFail(fn func(error)) *Builder {
	b.networkFail = fn
	return b
}

// Send performs one HTTP exchange and dispatches the outcome to exactly one
// handler. It returns an error when the outcome has no handler, when the
// backend answered with a non-retryable status or when ctx was cancelled.
func (b *Builder) Send(ctx context.Context) error {
	resp, err := b.do(ctx)
	if err != nil {
		if IsCancelled(err) {
			return err
		}
		if IsNetworkError(err) && b.networkFail != nil {
			b.networkFail(err)
			return nil
		}
		return err
	}

	if !resp.OK() && b.fail != nil {
		b.fail(resp)
		return nil
	}
	if b.success != nil {
		b.success(resp)
	}
	return nil
}

func (b *Builder) do(ctx context.Context) (*Response, error) {
	body, err := encodeBody(b.data)
	if err != nil {
		return nil, err
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, b.method, b.url, reader)
	if err != nil {
		return nil, newRequestBuildError(fmt.Sprintf("failed to create %s request", b.method), err)
	}

	for key, values := range b.service.Header {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	logging.LogRequest(b.method, b.url, len(body))
	start := time.Now()

	httpResp, err := b.service.HTTPClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ClassifyNetworkError(ctx.Err(), b.url)
		}
		return nil, NewNetworkError(fmt.Sprintf("%s request failed", b.method), b.url, err)
	}
	defer func() { _ = httpResp.Body.Close() }()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, NewNetworkError("failed to read response body", b.url, err)
	}

	logging.LogResponse(b.method, b.url, httpResp.StatusCode, time.Since(start))

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		excerpt := respBody
		if len(excerpt) > maxErrorBody {
			excerpt = excerpt[:maxErrorBody]
		}
		return nil, NewHTTPError(httpResp.StatusCode, b.url, string(excerpt))
	}

	return &Response{
		StatusCode: httpResp.StatusCode,
		Header:     httpResp.Header,
		Body:       respBody,
		Result:     parseResult(respBody),
	}, nil
}

func encodeBody(data any) ([]byte, error) {
	switch v := data.(type) {
	case nil:
		return nil, nil
	case []byte:
		return v, nil
	case json.RawMessage:
		return v, nil
	case string:
		return []byte(v), nil
	}

	body, err := json.Marshal(data)
	if err != nil {
		return nil, newRequestBuildError("failed to encode request body", err)
	}
	return body, nil
}
