package catalog

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/sambrocindrela-ctrl/gestor-assignatures/internal"
	"github.com/sambrocindrela-ctrl/gestor-assignatures/internal/config"
	"github.com/sambrocindrela-ctrl/gestor-assignatures/internal/settings"
)

var (
	ErrNotFound = errors.New("file not found")
	ErrConflict = errors.New("remote file changed since it was read")
)

// APIError carries the status and the message GitHub returned.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("github api error: status=%d", e.StatusCode)
	}
	return e.Message
}

// Location addresses one file in a repository branch.
type Location struct {
	Owner  string
	Repo   string
	Path   string
	Branch string
	Token  string
}

func LocationFromSettings(s settings.Settings) Location {
	return Location{Owner: s.Owner, Repo: s.Repo, Path: s.Path, Branch: s.Branch, Token: s.Token}
}

type Client struct {
	cfg        config.Config
	httpClient *http.Client
	limiter    *rate.Limiter
}

type contentResponse struct {
	SHA      string `json:"sha"`
	Content  string `json:"content"`
	Encoding string `json:"encoding"`
}

type writeRequest struct {
	Message string `json:"message"`
	Content string `json:"content"`
	SHA     string `json:"sha,omitempty"`
	Branch  string `json:"branch,omitempty"`
}

type writeResponse struct {
	Content struct {
		SHA string `json:"sha"`
	} `json:"content"`
}

type errorResponse struct {
	Message string `json:"message"`
}

func NewClient(cfg config.Config) *Client {
	rps := cfg.GitHubRateLimitRPS
	if rps <= 0 {
		rps = 1
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: time.Duration(cfg.GitHubTimeoutMs) * time.Millisecond},
		limiter:    rate.NewLimiter(rate.Limit(rps), 1),
	}
}

// Read returns the decoded file content and its blob sha.
func (c *Client) Read(ctx context.Context, loc Location) (internal.RemoteFile, error) {
	u, err := c.contentsURL(loc)
	if err != nil {
		return internal.RemoteFile{}, err
	}
	if loc.Branch != "" {
		q := u.Query()
		q.Set("ref", loc.Branch)
		u.RawQuery = q.Encode()
	}

	body, err := c.do(ctx, http.MethodGet, u.String(), loc.Token, nil)
	if err != nil {
		return internal.RemoteFile{}, err
	}

	var payload contentResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return internal.RemoteFile{}, fmt.Errorf("decode contents response: %w", err)
	}
	if payload.Encoding != "" && payload.Encoding != "base64" {
		return internal.RemoteFile{}, fmt.Errorf("unsupported content encoding: %s", payload.Encoding)
	}
	content, err := base64.StdEncoding.DecodeString(strings.NewReplacer("\n", "", "\r", "").Replace(payload.Content))
	if err != nil {
		return internal.RemoteFile{}, fmt.Errorf("decode file content: %w", err)
	}

	return internal.RemoteFile{Content: string(content), Revision: payload.SHA}, nil
}

// Write replaces the file and returns the new blob sha. An empty revision
// creates the file.
func (c *Client) Write(ctx context.Context, loc Location, content, message, revision string) (string, error) {
	u, err := c.contentsURL(loc)
	if err != nil {
		return "", err
	}

	blob, err := json.Marshal(writeRequest{
		Message: message,
		Content: base64.StdEncoding.EncodeToString([]byte(content)),
		SHA:     revision,
		Branch:  loc.Branch,
	})
	if err != nil {
		return "", err
	}

	body, err := c.do(ctx, http.MethodPut, u.String(), loc.Token, blob)
	if err != nil {
		return "", err
	}

	var payload writeResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", fmt.Errorf("decode write response: %w", err)
	}
	return payload.Content.SHA, nil
}

func (c *Client) contentsURL(loc Location) (*url.URL, error) {
	if strings.TrimSpace(loc.Owner) == "" || strings.TrimSpace(loc.Repo) == "" || strings.TrimSpace(loc.Path) == "" {
		return nil, errors.New("github location needs owner, repo and path")
	}

	segments := strings.Split(strings.Trim(loc.Path, "/"), "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}

	base := strings.TrimRight(c.cfg.GitHubAPIBaseURL, "/")
	return url.Parse(fmt.Sprintf("%s/repos/%s/%s/contents/%s", base, url.PathEscape(loc.Owner), url.PathEscape(loc.Repo), strings.Join(segments, "/")))
}

func (c *Client) do(ctx context.Context, method, target, token string, payload []byte) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reqBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return body, nil
	}

	var apiErr errorResponse
	_ = json.Unmarshal(body, &apiErr)
	switch resp.StatusCode {
	case http.StatusNotFound:
		return nil, ErrNotFound
	case http.StatusConflict:
		return nil, fmt.Errorf("%w: %s", ErrConflict, apiErr.Message)
	}
	return nil, &APIError{StatusCode: resp.StatusCode, Message: apiErr.Message}
}
