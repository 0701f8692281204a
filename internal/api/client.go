package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const DefaultTimeout = 15 * time.Second

type Options struct {
	BaseURL string
	Timeout time.Duration
	Logger  *zap.Logger
	// HTTPClient overrides the transport (tests). Its Jar is replaced when nil.
	HTTPClient *http.Client
}

// Client talks to the task-tracking backend. It holds the session cookie in a jar
// that lives as long as the client; requests and cookie changes may run concurrently.
type Client struct {
	base *url.URL
	http *http.Client
	log  *zap.Logger
}

func New(opt Options) (*Client, error) {
	raw := strings.TrimRight(strings.TrimSpace(opt.BaseURL), "/")
	if raw == "" {
		return nil, errors.New("missing server url")
	}
	base, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid server url %q: %w", raw, err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("invalid server url %q: scheme must be http or https", raw)
	}

	hc := opt.HTTPClient
	if hc == nil {
		timeout := opt.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		hc = &http.Client{Timeout: timeout}
	}
	if hc.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, err
		}
		hc.Jar = jar
	}

	log := opt.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{base: base, http: hc, log: log}, nil
}

func (c *Client) BaseURL() string { return c.base.String() }

// Cookie is the persisted form of a session cookie.
type Cookie struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Cookies returns the cookies the backend set for this server.
func (c *Client) Cookies() []Cookie {
	var out []Cookie
	for _, ck := range c.http.Jar.Cookies(c.base) {
		out = append(out, Cookie{Name: ck.Name, Value: ck.Value})
	}
	return out
}

// SetCookies restores previously persisted cookies.
func (c *Client) SetCookies(cs []Cookie) {
	if len(cs) == 0 {
		return
	}
	hcs := make([]*http.Cookie, 0, len(cs))
	for _, ck := range cs {
		hcs = append(hcs, &http.Cookie{Name: ck.Name, Value: ck.Value, Path: "/"})
	}
	c.http.Jar.SetCookies(c.base, hcs)
}

// ClearCookies expires every cookie held for the server. The jar itself is never
// replaced: requests still in flight read it concurrently.
func (c *Client) ClearCookies() {
	var expired []*http.Cookie
	for _, ck := range c.http.Jar.Cookies(c.base) {
		expired = append(expired, &http.Cookie{Name: ck.Name, Path: "/", MaxAge: -1})
	}
	if len(expired) > 0 {
		c.http.Jar.SetCookies(c.base, expired)
	}
}

func (c *Client) endpoint(path string, query url.Values) string {
	u := *c.base
	u.Path = strings.TrimRight(c.base.Path, "/") + path
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

// do sends one request; out may be nil. Non-2xx responses become *Error.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path, query), body)
	if err != nil {
		return err
	}
	reqID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", reqID)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Debug("request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.String("request_id", reqID),
			zap.Error(err))
		return &TransportError{Method: method, Path: path, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransportError{Method: method, Path: path, Err: err}
	}
	c.log.Debug("request",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)),
		zap.String("request_id", reqID))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &Error{Method: method, Path: path, Status: resp.StatusCode, Message: errorMessage(raw)}
	}
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &TransportError{Method: method, Path: path, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

// errorMessage extracts {error|message} from an error body.
func errorMessage(raw []byte) string {
	var env struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &env); err != nil {
		s := strings.TrimSpace(string(raw))
		if len(s) > 200 || strings.HasPrefix(s, "<") {
			return ""
		}
		return s
	}
	if env.Error != "" {
		return env.Error
	}
	return env.Message
}
