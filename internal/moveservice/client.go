package moveservice

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"strings"
	"time"

	dto "github.com/park285/otheller-go/pkg/othellodto"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
)

const (
	pathUploadStrategies = "/upload_strategies"
	pathUploadHumanVsAI  = "/upload_human_vs_ai"
	pathNextMove         = "/next_move"
	pathReset            = "/reset_game"
	pathState            = "/get_state"
)

// HeaderProvider injects per-request headers.
type HeaderProvider func() map[string]string

// Client talks to the move service over HTTP.
type Client struct {
	baseURL string
	http    *fasthttp.Client
	headers HeaderProvider
	logger  *zap.Logger

	defaultTimeout time.Duration
	retryMax       int
}

type Option func(*Client)

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.defaultTimeout = d
		}
	}
}

func WithMaxConnsPerHost(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.http.MaxConnsPerHost = n
		}
	}
}

func WithHeaderProvider(h HeaderProvider) Option {
	return func(c *Client) { c.headers = h }
}

// WithRetry bounds attempts for idempotent calls (reset, state probe).
func WithRetry(n int) Option {
	return func(c *Client) { c.retryMax = n }
}

// WithDial replaces the dialer, e.g. with an in-memory listener.
func WithDial(d fasthttp.DialFunc) Option {
	return func(c *Client) { c.http.Dial = d }
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:        strings.TrimRight(baseURL, "/"),
		http:           &fasthttp.Client{ReadTimeout: 30 * time.Second, WriteTimeout: 30 * time.Second, MaxConnsPerHost: 4},
		logger:         zap.NewNop(),
		defaultTimeout: 30 * time.Second,
		retryMax:       3,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) SubmitStrategies(ctx context.Context, bundle dto.StrategyBundle) (*dto.StrategiesResult, error) {
	body, ctype, err := encodeMultipart(nil, []formFile{
		{field: "player1_file", file: bundle.Player1},
		{field: "player2_file", file: bundle.Player2},
	})
	if err != nil {
		return nil, err
	}
	var out dto.StrategiesResult
	if err := c.do(ctx, fasthttp.MethodPost, pathUploadStrategies, ctype, body, &out, false); err != nil {
		return nil, err
	}
	if !out.Success {
		return nil, dto.ServiceError{Op: "upload_strategies", Message: out.Error}
	}
	return &out, nil
}

func (c *Client) SubmitHumanVsAI(ctx context.Context, ai dto.StrategyFile, human dto.Player) (*dto.HumanVsAIResult, error) {
	if !human.Valid() {
		return nil, fmt.Errorf("invalid human player: %d", human)
	}
	body, ctype, err := encodeMultipart(map[string]string{"human_color": human.Color()}, []formFile{
		{field: "ai_file", file: ai},
	})
	if err != nil {
		return nil, err
	}
	var out dto.HumanVsAIResult
	if err := c.do(ctx, fasthttp.MethodPost, pathUploadHumanVsAI, ctype, body, &out, false); err != nil {
		return nil, err
	}
	if !out.Success {
		return nil, dto.ServiceError{Op: "upload_human_vs_ai", Message: out.Error}
	}
	return &out, nil
}

// RequestNextPly asks for the next ply. It is never retried.
func (c *Client) RequestNextPly(ctx context.Context, humanMove *dto.Move) (*dto.GameState, error) {
	payload, err := json.Marshal(dto.NextMoveRequest{HumanMove: humanMove})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	var out dto.PlyResult
	if err := c.do(ctx, fasthttp.MethodPost, pathNextMove, "application/json", payload, &out, false); err != nil {
		return nil, err
	}
	if !out.Success {
		return nil, dto.ServiceError{Op: "next_move", Message: out.Error}
	}
	if out.State == nil {
		return nil, dto.ServiceError{Op: "next_move", Message: "no state in reply"}
	}
	return out.State, nil
}

func (c *Client) ResetSession(ctx context.Context) error {
	var out dto.ResetResult
	if err := c.do(ctx, fasthttp.MethodPost, pathReset, "", nil, &out, true); err != nil {
		return err
	}
	if !out.Success {
		return dto.ServiceError{Op: "reset_game", Message: out.Error}
	}
	return nil
}

// CurrentState fetches the server-side snapshot; nil when no game is loaded.
func (c *Client) CurrentState(ctx context.Context) (*dto.GameState, error) {
	var out dto.StateResult
	if err := c.do(ctx, fasthttp.MethodGet, pathState, "", nil, &out, true); err != nil {
		return nil, err
	}
	return out.State, nil
}

type formFile struct {
	field string
	file  dto.StrategyFile
}

func encodeMultipart(fields map[string]string, files []formFile) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return nil, "", fmt.Errorf("write field %s: %w", k, err)
		}
	}
	for _, f := range files {
		name := f.file.Name
		if strings.TrimSpace(name) == "" {
			name = f.field + ".py"
		}
		part, err := w.CreateFormFile(f.field, name)
		if err != nil {
			return nil, "", fmt.Errorf("create form file %s: %w", f.field, err)
		}
		if _, err := part.Write(f.file.Content); err != nil {
			return nil, "", fmt.Errorf("write form file %s: %w", f.field, err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart: %w", err)
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}

type errorBody struct {
	Success *bool  `json:"success"`
	Error   string `json:"error"`
}

func (c *Client) do(ctx context.Context, method, path, contentType string, body []byte, out any, retry bool) error {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}()

	req.Header.SetMethod(method)
	req.SetRequestURI(c.baseURL + path)
	if contentType != "" {
		req.Header.SetContentType(contentType)
	}
	if c.headers != nil {
		for k, v := range c.headers() {
			if strings.TrimSpace(k) != "" && strings.TrimSpace(v) != "" {
				req.Header.Set(k, v)
			}
		}
	}
	if body != nil {
		req.SetBody(body)
	}

	attempts := 1
	if retry && c.retryMax > 1 {
		attempts = c.retryMax
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		started := time.Now()
		err := c.http.DoDeadline(req, resp, c.computeDeadline(ctx))
		if err != nil {
			lastErr = fmt.Errorf("request failed: %w", err)
			c.logger.Debug("move_service_request_failed", zap.String("path", path), zap.Int("attempt", attempt), zap.Error(err))
			if attempt == attempts {
				return lastErr
			}
			if sleepErr := sleepWithContext(ctx, backoffDuration(attempt)); sleepErr != nil {
				return lastErr
			}
			continue
		}
		c.logger.Debug("move_service_response", zap.String("path", path), zap.Int("status", resp.StatusCode()), zap.Duration("took", time.Since(started)))

		status := resp.StatusCode()
		if status < 200 || status >= 300 {
			raw := resp.Body()
			var eb errorBody
			if json.Unmarshal(raw, &eb) == nil && eb.Error != "" {
				return dto.ServiceError{Op: strings.TrimPrefix(path, "/"), Message: eb.Error}
			}
			lastErr = fmt.Errorf("move service error: status=%d body=%s", status, truncate(string(raw), 512))
			if attempt == attempts || !shouldRetryStatus(status) {
				return lastErr
			}
			if sleepErr := sleepWithContext(ctx, backoffDuration(attempt)); sleepErr != nil {
				return lastErr
			}
			continue
		}

		if out != nil {
			if err := json.Unmarshal(resp.Body(), out); err != nil {
				return fmt.Errorf("decode response: %w", err)
			}
		}
		return nil
	}
	if lastErr == nil {
		lastErr = errors.New("unknown error")
	}
	return lastErr
}

func (c *Client) computeDeadline(ctx context.Context) time.Time {
	clientDL := time.Now().Add(c.defaultTimeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(clientDL) {
		return dl
	}
	return clientDL
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func backoffDuration(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > 6 {
		attempt = 6
	}
	return time.Duration(1<<uint(attempt-1)) * 100 * time.Millisecond
}

func shouldRetryStatus(code int) bool {
	switch code {
	case fasthttp.StatusInternalServerError, fasthttp.StatusBadGateway, fasthttp.StatusServiceUnavailable, fasthttp.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
