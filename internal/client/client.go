package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/sirupsen/logrus"
)

// DefaultTimeout bounds every request unless WithTimeout says otherwise
const DefaultTimeout = 15 * time.Second

// TokenSource supplies the bearer token for authenticated calls.
// An empty token means the caller is not logged in.
type TokenSource interface {
	Token() string
}

// StaticToken is a fixed token, mostly useful in tests
type StaticToken string

// Token returns the token itself
func (t StaticToken) Token() string {
	return string(t)
}

// Client talks to the resort API
type Client struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
	tokens     TokenSource
	logger     logrus.FieldLogger
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTimeout sets the per-request timeout; zero or less disables it
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithTokenSource sets where bearer tokens come from
func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) {
		c.tokens = ts
	}
}

// WithLogger sets the request logger
func WithLogger(logger logrus.FieldLogger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// New creates a client for the API at baseURL
func New(baseURL string, opts ...Option) *Client {
	discard := logrus.New()
	discard.SetOutput(io.Discard)

	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
		timeout:    DefaultTimeout,
		tokens:     StaticToken(""),
		logger:     discard,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// HasToken reports whether an authenticated call could be attempted
func (c *Client) HasToken() bool {
	return c.tokens.Token() != ""
}

// FileUpload is a file sent as one part of a multipart request
type FileUpload struct {
	Name string
	Data []byte
}

type formField struct {
	name  string
	value string
}

type authMode int

const (
	public authMode = iota
	authenticated
)

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

func (c *Client) doJSON(ctx context.Context, method, path string, auth authMode, in, out any) error {
	var body io.Reader
	contentType := ""
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return &Error{Kind: KindValidation, Message: "failed to encode request", Err: err}
		}
		body = bytes.NewReader(data)
		contentType = "application/json"
	}
	return c.do(ctx, method, path, auth, body, contentType, out)
}

func (c *Client) doMultipart(ctx context.Context, path string, fields []formField, fileField string, file FileUpload, out any) error {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for _, f := range fields {
		if err := w.WriteField(f.name, f.value); err != nil {
			return &Error{Kind: KindValidation, Message: "failed to encode form", Err: err}
		}
	}

	name := file.Name
	if name == "" {
		name = fileField + mimetype.Detect(file.Data).Extension()
	}
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, fileField, name))
	header.Set("Content-Type", mimetype.Detect(file.Data).String())
	part, err := w.CreatePart(header)
	if err != nil {
		return &Error{Kind: KindValidation, Message: "failed to encode form", Err: err}
	}
	if _, err := part.Write(file.Data); err != nil {
		return &Error{Kind: KindValidation, Message: "failed to encode form", Err: err}
	}
	if err := w.Close(); err != nil {
		return &Error{Kind: KindValidation, Message: "failed to encode form", Err: err}
	}

	return c.do(ctx, http.MethodPost, path, authenticated, &buf, w.FormDataContentType(), out)
}

func (c *Client) do(ctx context.Context, method, path string, auth authMode, body io.Reader, contentType string, out any) error {
	token := c.tokens.Token()
	if auth == authenticated && token == "" {
		return AuthRequiredError()
	}

	reqCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		reqCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(reqCtx, method, c.baseURL+path, body)
	if err != nil {
		return &Error{Kind: KindValidation, Message: "failed to create request", Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		classified := transportError(ctx, err)
		c.logger.WithFields(logrus.Fields{
			"method": method,
			"path":   path,
			"kind":   classified.Kind.String(),
		}).WithError(err).Debug("Request failed")
		return classified
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return transportError(ctx, err)
	}

	c.logger.WithFields(logrus.Fields{
		"method":  method,
		"path":    path,
		"status":  resp.StatusCode,
		"latency": time.Since(start).String(),
	}).Debug("Request completed")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return responseError(resp.StatusCode, data)
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &Error{Kind: KindServerFault, Status: resp.StatusCode, Message: "unexpected response from server", Err: err}
	}
	return nil
}

func responseError(status int, data []byte) *Error {
	var body errorBody
	_ = json.Unmarshal(data, &body)

	message := body.Message
	if message == "" {
		message = body.Error
	}
	return &Error{
		Kind:    kindForStatus(status, body.Code),
		Status:  status,
		Code:    body.Code,
		Message: message,
	}
}

// transportError classifies a failure that produced no HTTP response.
// ctx is the caller's context, so its own cancellation wins over our timeout.
func transportError(ctx context.Context, err error) *Error {
	if errors.Is(ctx.Err(), context.Canceled) {
		return &Error{Kind: KindCanceled, Err: err}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: KindTimeout, Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &Error{Kind: KindTimeout, Err: err}
	}
	if errors.Is(err, context.Canceled) {
		return &Error{Kind: KindCanceled, Err: err}
	}
	return &Error{Kind: KindServerFault, Err: err}
}
