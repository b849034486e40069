// Package gist はリモート設定ドキュメント（GitHub Gist）の読み書きを提供する。
// 生URLの解析、キャッシュ回避付きの取得、リビジョンAPIによる部分更新、最新リビジョンの解決を含む。
package gist

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultAPIBaseURL はGist APIのベースURL。
	DefaultAPIBaseURL = "https://api.github.com"
	// RawHost は生コンテンツを配信するホスト。
	RawHost = "gist.githubusercontent.com"
	// defaultMaxBodySize はレスポンスボディの既定上限（5MB）。
	defaultMaxBodySize int64 = 5 * 1024 * 1024
	// userAgent はGitHub APIが要求するUser-Agentヘッダー。
	userAgent = "SamKitchen/1.0"
)

var (
	// ErrInvalidRawURL は生URLの形式が不正な場合のエラー。
	ErrInvalidRawURL = errors.New("gist: invalid raw URL")
	// ErrFileNotFound は指定したファイルがドキュメントに存在しない場合のエラー。
	ErrFileNotFound = errors.New("gist: file not found")
	// ErrNoRevision は更新レスポンスにリビジョンが含まれない場合のエラー。
	ErrNoRevision = errors.New("gist: response has no revision")
)

// StatusError はGist側が成功以外のステータスを返した場合のエラー。
type StatusError struct {
	StatusCode int
	Op         string
}

// Error はerrorインターフェースを実装する。
func (e *StatusError) Error() string {
	return fmt.Sprintf("gist: %s returned status %d", e.Op, e.StatusCode)
}

// Client はGistのクライアント。
type Client struct {
	httpClient  *http.Client
	logger      *slog.Logger
	apiBaseURL  string
	rawBaseURL  string // テスト用に生URLのベースを差し替え可能
	maxBodySize int64
	now         func() time.Time
}

// NewClient はClientの新しいインスタンスを生成する。apiBaseURLが空の場合は既定値を使う。
func NewClient(httpClient *http.Client, apiBaseURL string, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if apiBaseURL == "" {
		apiBaseURL = DefaultAPIBaseURL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		httpClient:  httpClient,
		logger:      logger,
		apiBaseURL:  strings.TrimRight(apiBaseURL, "/"),
		rawBaseURL:  "https://" + RawHost,
		maxBodySize: defaultMaxBodySize,
		now:         time.Now,
	}
}

// SetMaxBodySize はレスポンスボディの上限を設定する。0以下は無視する。
func (c *Client) SetMaxBodySize(n int64) {
	if n > 0 {
		c.maxBodySize = n
	}
}

// FetchDocument は生URLからドキュメントを取得する。
// 中間キャッシュを回避するため現在時刻をクエリパラメータ t に付与する。
func (c *Client) FetchDocument(ctx context.Context, rawURL string) ([]byte, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("gist: parsing document URL: %w", err)
	}
	q := u.Query()
	q.Set("t", strconv.FormatInt(c.now().UnixMilli(), 10))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("gist: creating request: %w", err)
	}
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gist: fetching document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{StatusCode: resp.StatusCode, Op: "fetch"}
	}

	return c.readBody(resp.Body)
}

// updateRequest はPATCH /gists/{id} のリクエストボディ。
type updateRequest struct {
	Files map[string]fileContent `json:"files"`
}

type fileContent struct {
	Content string `json:"content"`
}

type gistFile struct {
	RawURL string `json:"raw_url"`
}

// gistResponse はGist APIのレスポンスのうち利用する部分。
type gistResponse struct {
	Owner *struct {
		Login string `json:"login"`
	} `json:"owner"`
	Files   map[string]gistFile `json:"files"`
	History []struct {
		Version string `json:"version"`
	} `json:"history"`
}

// UpdateFile はリビジョンAPIでファイル内容を置き換え、新しいリビジョンIDと
// そのリビジョンを指す生URLを返す。
func (c *Client) UpdateFile(ctx context.Context, ref DocumentRef, token string, content []byte) (string, string, error) {
	if ref.ID == "" || ref.File == "" {
		return "", "", ErrInvalidRawURL
	}

	payload, err := json.Marshal(updateRequest{
		Files: map[string]fileContent{ref.File: {Content: string(content)}},
	})
	if err != nil {
		return "", "", fmt.Errorf("gist: encoding update: %w", err)
	}

	endpoint := c.apiBaseURL + "/gists/" + url.PathEscape(ref.ID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", "", fmt.Errorf("gist: creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.setAPIHeaders(req, token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("Gistの更新リクエストに失敗しました",
			slog.String("gist_id", ref.ID),
			slog.String("error", err.Error()),
		)
		return "", "", fmt.Errorf("gist: updating document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Error("Gist APIがエラーステータスを返しました",
			slog.String("gist_id", ref.ID),
			slog.Int("http_status", resp.StatusCode),
		)
		return "", "", &StatusError{StatusCode: resp.StatusCode, Op: "update"}
	}

	g, err := c.decodeGist(resp.Body)
	if err != nil {
		return "", "", err
	}
	if len(g.History) == 0 || g.History[0].Version == "" {
		return "", "", ErrNoRevision
	}

	revision := g.History[0].Version
	owner := ref.Owner
	if g.Owner != nil && g.Owner.Login != "" {
		owner = g.Owner.Login
	}
	pinned := DocumentRef{Owner: owner, ID: ref.ID, Revision: revision, File: ref.File}
	return revision, c.rawURL(pinned), nil
}

// LatestRawURL はメタデータAPIでドキュメントの最新リビジョンを解決し、
// そのリビジョンを指す生URLを返す。fileが空の場合は先頭（名前順）のファイルを使う。
func (c *Client) LatestRawURL(ctx context.Context, id, file, token string) (string, error) {
	endpoint := c.apiBaseURL + "/gists/" + url.PathEscape(id)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("gist: creating request: %w", err)
	}
	req.Header.Set("Cache-Control", "no-cache")
	c.setAPIHeaders(req, token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("gist: fetching metadata: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &StatusError{StatusCode: resp.StatusCode, Op: "metadata"}
	}

	g, err := c.decodeGist(resp.Body)
	if err != nil {
		return "", err
	}

	if file == "" {
		file = firstFileName(g.Files)
	}
	f, ok := g.Files[file]
	if !ok || f.RawURL == "" {
		return "", fmt.Errorf("%w: %q", ErrFileNotFound, file)
	}
	return f.RawURL, nil
}

func (c *Client) setAPIHeaders(req *http.Request, token string) {
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("User-Agent", userAgent)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

func (c *Client) decodeGist(r io.Reader) (*gistResponse, error) {
	body, err := c.readBody(r)
	if err != nil {
		return nil, err
	}
	var g gistResponse
	if err := json.Unmarshal(body, &g); err != nil {
		return nil, fmt.Errorf("gist: decoding response: %w", err)
	}
	return &g, nil
}

// readBody は上限+1バイトまで読み、上限を超えた場合はエラーにする。
func (c *Client) readBody(r io.Reader) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(r, c.maxBodySize+1))
	if err != nil {
		return nil, fmt.Errorf("gist: reading body: %w", err)
	}
	if int64(len(body)) > c.maxBodySize {
		return nil, fmt.Errorf("gist: body exceeds %d bytes", c.maxBodySize)
	}
	return body, nil
}

func (c *Client) rawURL(ref DocumentRef) string {
	return c.rawBaseURL + ref.path()
}

func firstFileName(files map[string]gistFile) string {
	first := ""
	for name := range files {
		if first == "" || name < first {
			first = name
		}
	}
	return first
}
