package separate

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"mime/multipart"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/alnah/go-separate/internal/apierr"
)

// Separation service endpoints, relative to the base URL.
const (
	pathLoad       = "/v1/models/load"
	pathSeparate   = "/v1/separate"
	pathCacheClear = "/v1/cache/clear"
)

// Default retry configuration.
const (
	defaultMaxRetries  = 5
	defaultBaseDelay   = 1 * time.Second
	defaultMaxDelay    = 30 * time.Second
	defaultHTTPTimeout = 10 * time.Minute
)

// headerRequestID correlates client logs with service logs.
const headerRequestID = "X-Request-ID"

var _ Model = (*HTTPModel)(nil)

// HTTPModel is a Model served by a separation service over HTTP.
// The service holds the weights; HTTPModel remembers which model it loaded
// and sends that name with every separation request.
type HTTPModel struct {
	baseURL    string
	apiKey     string
	httpClient httpDoer
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
	log        zerolog.Logger
	newID      func() string

	model string
}

// HTTPModelOption configures an HTTPModel.
type HTTPModelOption func(*HTTPModel)

// WithHTTPClient sets a custom HTTP client (for testing).
func WithHTTPClient(c httpDoer) HTTPModelOption {
	return func(m *HTTPModel) { m.httpClient = c }
}

// WithMaxRetries sets the maximum number of retry attempts.
func WithMaxRetries(n int) HTTPModelOption {
	return func(m *HTTPModel) {
		if n >= 0 {
			m.maxRetries = n
		}
	}
}

// WithRetryDelays sets the base and max delays for exponential backoff.
func WithRetryDelays(base, max time.Duration) HTTPModelOption {
	return func(m *HTTPModel) {
		if base > 0 {
			m.baseDelay = base
		}
		if max > 0 {
			m.maxDelay = max
		}
	}
}

// WithLogger sets the logger for request and retry events.
func WithLogger(l zerolog.Logger) HTTPModelOption {
	return func(m *HTTPModel) { m.log = l }
}

// WithRequestIDFunc overrides request ID generation (for testing).
func WithRequestIDFunc(fn func() string) HTTPModelOption {
	return func(m *HTTPModel) { m.newID = fn }
}

// NewHTTPModel creates a client for the service at baseURL.
// apiKey is optional; when set it is sent as a bearer token.
func NewHTTPModel(baseURL, apiKey string, opts ...HTTPModelOption) (*HTTPModel, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, ErrServerURLMissing
	}
	u, err := url.Parse(baseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %q is not an http(s) URL", ErrServerURLMissing, baseURL)
	}

	m := &HTTPModel{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
		maxRetries: defaultMaxRetries,
		baseDelay:  defaultBaseDelay,
		maxDelay:   defaultMaxDelay,
		log:        zerolog.Nop(),
		newID:      uuid.NewString,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// loadRequest is the JSON body of a model load call.
type loadRequest struct {
	Model  string `json:"model"`
	DType  string `json:"dtype"`
	Device string `json:"device"`
	Eval   bool   `json:"eval"`
}

// Load asks the service to materialise the model with the given precision and device.
func (m *HTTPModel) Load(ctx context.Context, opts LoadOptions) (ModelInfo, error) {
	body, err := json.Marshal(loadRequest(opts))
	if err != nil {
		return ModelInfo{}, fmt.Errorf("failed to encode load request: %w", err)
	}

	info, err := apierr.RetryWithBackoff(ctx, m.retryConfig(pathLoad), func() (ModelInfo, error) {
		var info ModelInfo
		err := m.post(ctx, pathLoad, "application/json", body, &info)
		return info, err
	}, apierr.IsRetryable)
	if err != nil {
		return ModelInfo{}, err
	}

	if info.Model == "" {
		info.Model = opts.Model
	}
	if info.SampleRate <= 0 {
		return ModelInfo{}, fmt.Errorf("%w: sample_rate %d", ErrInvalidResponse, info.SampleRate)
	}
	m.model = info.Model
	return info, nil
}

// separateResponse carries base64-encoded little-endian float32 PCM per batch item.
type separateResponse struct {
	SampleRate int      `json:"sample_rate"`
	Target     []string `json:"target"`
	Residual   []string `json:"residual"`
}

// Separate uploads a prepared batch and decodes the separated waveforms.
func (m *HTTPModel) Separate(ctx context.Context, in *Inputs, opts Options) (*Result, error) {
	if m.model == "" {
		return nil, ErrModelNotLoaded
	}
	if in == nil || in.Len() == 0 {
		return nil, fmt.Errorf("%w: empty batch", ErrBatchMismatch)
	}

	body, contentType, err := m.encodeSeparateForm(in, opts)
	if err != nil {
		return nil, err
	}

	resp, err := apierr.RetryWithBackoff(ctx, m.retryConfig(pathSeparate), func() (separateResponse, error) {
		var resp separateResponse
		err := m.post(ctx, pathSeparate, contentType, body, &resp)
		return resp, err
	}, apierr.IsRetryable)
	if err != nil {
		return nil, err
	}

	if len(resp.Target) != in.Len() || len(resp.Residual) != in.Len() {
		return nil, fmt.Errorf("%w: %d inputs, %d targets, %d residuals",
			ErrInvalidResponse, in.Len(), len(resp.Target), len(resp.Residual))
	}

	result := &Result{
		SampleRate: resp.SampleRate,
		Target:     make([][]float32, in.Len()),
		Residual:   make([][]float32, in.Len()),
	}
	for i := range in.Len() {
		if result.Target[i], err = decodeFloat32s(resp.Target[i]); err != nil {
			return nil, fmt.Errorf("target %d: %w", i, err)
		}
		if result.Residual[i], err = decodeFloat32s(resp.Residual[i]); err != nil {
			return nil, fmt.Errorf("residual %d: %w", i, err)
		}
	}
	return result, nil
}

// ReleaseCache asks the service to free accelerator memory. Not retried.
func (m *HTTPModel) ReleaseCache(ctx context.Context) error {
	return m.post(ctx, pathCacheClear, "application/json", []byte("{}"), nil)
}

// encodeSeparateForm builds the multipart body for a separation call.
func (m *HTTPModel) encodeSeparateForm(in *Inputs, opts Options) ([]byte, string, error) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)

	fields := []struct{ key, value string }{
		{"model", m.model},
		{"predict_spans", strconv.FormatBool(opts.PredictSpans)},
		{"reranking_candidates", strconv.Itoa(opts.RerankingCandidates)},
		{"inference_mode", strconv.FormatBool(opts.InferenceMode)},
		{"autocast_dtype", opts.AutocastDType},
	}
	for _, f := range fields {
		if err := w.WriteField(f.key, f.value); err != nil {
			return nil, "", fmt.Errorf("failed to write %s field: %w", f.key, err)
		}
	}
	for _, d := range in.Descriptions {
		if err := w.WriteField("description", d); err != nil {
			return nil, "", fmt.Errorf("failed to write description field: %w", err)
		}
	}
	for _, a := range in.Audio {
		part, err := w.CreateFormFile("audio", a.Name)
		if err != nil {
			return nil, "", fmt.Errorf("failed to create form file: %w", err)
		}
		if _, err := part.Write(a.Data); err != nil {
			return nil, "", fmt.Errorf("failed to copy %s to form: %w", a.Name, err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to close multipart writer: %w", err)
	}
	return body.Bytes(), w.FormDataContentType(), nil
}

// post sends one request and decodes a 2xx JSON body into out (if non-nil).
// Non-2xx responses are classified into apierr sentinels.
func (m *HTTPModel) post(ctx context.Context, path, contentType string, body []byte, out any) error {
	reqID := m.newID()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")
	req.Header.Set(headerRequestID, reqID)
	if m.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+m.apiKey)
	}

	start := time.Now()
	resp, err := m.httpClient.Do(req)
	if err != nil {
		return classifyTransportError(err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", classifyTransportError(err))
	}

	m.log.Debug().
		Str("path", path).
		Str("request_id", reqID).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("service call")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		after := apierr.ParseRetryAfter(resp.Header.Get("Retry-After"), time.Now())
		return apierr.WithRetryAfter(parseHTTPError(resp.StatusCode, respBody), after)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidResponse, err)
	}
	return nil
}

func (m *HTTPModel) retryConfig(path string) apierr.RetryConfig {
	return apierr.RetryConfig{
		MaxRetries: m.maxRetries,
		BaseDelay:  m.baseDelay,
		MaxDelay:   m.maxDelay,
		OnRetry: func(attempt int, delay time.Duration, err error) {
			m.log.Warn().
				Err(err).
				Str("path", path).
				Int("attempt", attempt).
				Dur("delay", delay).
				Msg("retrying service call")
		},
	}
}

// errorResponse is the service's error envelope.
type errorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error"`
}

// parseHTTPError extracts the service message and classifies the status.
func parseHTTPError(statusCode int, body []byte) error {
	msg := strings.TrimSpace(string(body))
	var errResp errorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Message != "" {
		msg = errResp.Error.Message
	}
	if msg == "" {
		msg = http.StatusText(statusCode)
	}
	return apierr.FromStatus(statusCode, msg)
}

// classifyTransportError maps client-side timeouts to apierr.ErrTimeout.
// Cancellation passes through untouched so callers can detect it.
func classifyTransportError(err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("request timed out: %w", apierr.ErrTimeout)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%v: %w", err, apierr.ErrTimeout)
	}
	return err
}

// decodeFloat32s decodes base64 little-endian float32 PCM.
func decodeFloat32s(s string) ([]float32, error) {
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidResponse, err)
	}
	if len(raw)%4 != 0 {
		return nil, fmt.Errorf("%w: %d bytes is not a whole number of float32 samples", ErrInvalidResponse, len(raw))
	}
	out := make([]float32, len(raw)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:]))
	}
	return out, nil
}
