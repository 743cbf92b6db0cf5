package client

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"
)

// HTTPBackendConfig はHTTPBackendの設定。
type HTTPBackendConfig struct {
	// BaseURL はAPIサーバーのベースURL（例: http://localhost:8080）。
	BaseURL string
	// Timeout は通常リクエストのタイムアウト。ゼロの場合は15秒。
	// 変更フィードのストリーミング接続には適用されない。
	Timeout time.Duration
}

// HTTPBackend はAPIサーバーのREST+SSEエンドポイントに対するBackend実装。
// セッションCookieとCSRF Cookieはcookie jarで自動管理する。
type HTTPBackend struct {
	baseURL string
	client  *http.Client
	// streamClient はタイムアウトなしのSSE接続用クライアント。jarは共有する。
	streamClient *http.Client

	csrfMu    sync.Mutex
	csrfToken string
}

// compile-time interface check
var _ Backend = (*HTTPBackend)(nil)

// NewHTTPBackend はHTTPBackendを生成する。
func NewHTTPBackend(config HTTPBackendConfig) (*HTTPBackend, error) {
	if config.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	timeout := config.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	// 認証コールバックの307リダイレクトを追わずにCookieを受け取る
	noRedirect := func(req *http.Request, via []*http.Request) error {
		return http.ErrUseLastResponse
	}

	return &HTTPBackend{
		baseURL: strings.TrimRight(config.BaseURL, "/"),
		client: &http.Client{
			Jar:           jar,
			Timeout:       timeout,
			CheckRedirect: noRedirect,
		},
		streamClient: &http.Client{
			Jar:           jar,
			CheckRedirect: noRedirect,
		},
	}, nil
}

// SignInURL はOAuthフローを開始するURLを返す。
func (b *HTTPBackend) SignInURL() string {
	return b.baseURL + "/auth/google/login"
}

// ExchangeCode はリダイレクトURLの認可コードとstateをサーバーのコールバックに
// 転送し、セッションを確立する。成功時はセッションCookieがjarに保存される。
func (b *HTTPBackend) ExchangeCode(ctx context.Context, redirectURL string) (*Session, error) {
	parsed, err := url.Parse(redirectURL)
	if err != nil {
		return nil, &AuthError{Message: "リダイレクトURLが不正です。", Err: err}
	}
	code := parsed.Query().Get("code")
	if code == "" {
		return nil, &AuthError{Message: "認可コードがありません。"}
	}

	callbackURL := fmt.Sprintf("%s/auth/google/callback?code=%s&state=%s",
		b.baseURL, url.QueryEscape(code), url.QueryEscape(parsed.Query().Get("state")))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, callbackURL, nil)
	if err != nil {
		return nil, &AuthError{Message: "リクエストの作成に失敗しました。", Err: err}
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, &AuthError{Message: "コード交換に失敗しました。", Err: err}
	}
	defer drainAndClose(resp.Body)

	// 成功時はアプリURLへの307リダイレクトが返る
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, &AuthError{Message: "コード交換に失敗しました。", Err: responseError(resp)}
	}

	session, err := b.CurrentSession(ctx)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, &AuthError{Message: "セッションが確立されませんでした。"}
	}
	return session, nil
}

// CurrentSession は現在のセッションを返す。未認証の場合は(nil, nil)。
func (b *HTTPBackend) CurrentSession(ctx context.Context) (*Session, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.baseURL+"/auth/me", nil)
	if err != nil {
		return nil, &AuthError{Message: "リクエストの作成に失敗しました。", Err: err}
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, &AuthError{Message: "セッションの取得に失敗しました。", Err: err}
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &AuthError{Message: "セッションの取得に失敗しました。", Err: responseError(resp)}
	}

	var body struct {
		ID        string `json:"id"`
		Email     string `json:"email"`
		Name      string `json:"name"`
		AvatarURL string `json:"avatar_url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, &AuthError{Message: "レスポンスの解析に失敗しました。", Err: err}
	}

	return &Session{Principal: Principal{
		ID:        body.ID,
		Email:     body.Email,
		Name:      body.Name,
		AvatarURL: body.AvatarURL,
	}}, nil
}

// SignOut はセッションを破棄する。
func (b *HTTPBackend) SignOut(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+"/auth/logout", nil)
	if err != nil {
		return &AuthError{Message: "リクエストの作成に失敗しました。", Err: err}
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return &AuthError{Message: "ログアウトに失敗しました。", Err: err}
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode != http.StatusNoContent {
		return &AuthError{Message: "ログアウトに失敗しました。", Err: responseError(resp)}
	}
	return nil
}

// bookmarkWire はサーバーAPIのブックマークJSON表現。
type bookmarkWire struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	URL       string    `json:"url"`
	CreatedAt time.Time `json:"created_at"`
}

func (w bookmarkWire) toBookmark() Bookmark {
	return Bookmark{
		ID:        w.ID,
		Title:     w.Title,
		URL:       w.URL,
		CreatedAt: w.CreatedAt,
	}
}

// List は現在のユーザーのブックマーク一覧を返す。
func (b *HTTPBackend) List(ctx context.Context) ([]Bookmark, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.baseURL+"/api/bookmarks", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("list request failed: %w", err)
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return nil, responseError(resp)
	}

	var body struct {
		Bookmarks []bookmarkWire `json:"bookmarks"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode list response: %w", err)
	}

	bookmarks := make([]Bookmark, len(body.Bookmarks))
	for i, w := range body.Bookmarks {
		bookmarks[i] = w.toBookmark()
	}
	return bookmarks, nil
}

// Insert はブックマークを作成する。
func (b *HTTPBackend) Insert(ctx context.Context, title, rawURL string) (*Bookmark, error) {
	token, err := b.ensureCSRFToken(ctx)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(map[string]string{"title": title, "url": rawURL})
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+"/api/bookmarks", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-CSRF-Token", token)

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("insert request failed: %w", err)
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode != http.StatusCreated {
		return nil, responseError(resp)
	}

	var w bookmarkWire
	if err := json.NewDecoder(resp.Body).Decode(&w); err != nil {
		return nil, fmt.Errorf("failed to decode insert response: %w", err)
	}
	created := w.toBookmark()
	return &created, nil
}

// Delete は指定IDのブックマークを削除する。
func (b *HTTPBackend) Delete(ctx context.Context, id string) error {
	token, err := b.ensureCSRFToken(ctx)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, b.baseURL+"/api/bookmarks/"+url.PathEscape(id), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("X-CSRF-Token", token)

	resp, err := b.client.Do(req)
	if err != nil {
		return fmt.Errorf("delete request failed: %w", err)
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode != http.StatusNoContent {
		return responseError(resp)
	}
	return nil
}

// sseChannel は開いているSSE接続のハンドル。
type sseChannel struct {
	cancel context.CancelFunc
	body   io.ReadCloser

	mu     sync.Mutex
	closed bool
}

func (c *sseChannel) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	c.cancel()
	return c.body.Close()
}

func (c *sseChannel) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Subscribe はブックマーク変更フィードのSSE接続を開く。
// changeイベントを受信するたびonChangeを呼ぶ。Channel.Closeで接続を閉じる。
func (b *HTTPBackend) Subscribe(ctx context.Context, onChange func()) (Channel, error) {
	streamCtx, cancel := context.WithCancel(ctx)

	req, err := http.NewRequestWithContext(streamCtx, http.MethodGet, b.baseURL+"/api/bookmarks/feed", nil)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := b.streamClient.Do(req)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("feed request failed: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		err := responseError(resp)
		drainAndClose(resp.Body)
		cancel()
		return nil, err
	}

	channel := &sseChannel{cancel: cancel, body: resp.Body}

	go func() {
		defer channel.Close()

		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line != "event: change" {
				// コメント行（ハートビート等）とdata行は読み飛ばす
				continue
			}
			if channel.isClosed() {
				return
			}
			onChange()
		}
		if err := scanner.Err(); err != nil && !channel.isClosed() {
			slog.Warn("change feed stream ended", slog.String("error", err.Error()))
		}
	}()

	return channel, nil
}

// ensureCSRFToken はCSRFトークンを取得しキャッシュする。
// トークンのCookieはjarに保存されるため、以降の書き込みリクエストで
// Cookieとヘッダーの二重送信が成立する。
func (b *HTTPBackend) ensureCSRFToken(ctx context.Context) (string, error) {
	b.csrfMu.Lock()
	defer b.csrfMu.Unlock()

	if b.csrfToken != "" {
		return b.csrfToken, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.baseURL+"/api/csrf-token", nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("csrf token request failed: %w", err)
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return "", responseError(resp)
	}

	var body struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("failed to decode csrf token response: %w", err)
	}
	if body.Token == "" {
		return "", fmt.Errorf("empty csrf token")
	}

	b.csrfToken = body.Token
	return b.csrfToken, nil
}

// responseError はサーバーの統一エラーレスポンスをerrorに変換する。
func responseError(resp *http.Response) error {
	var body struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil && body.Code != "" {
		return fmt.Errorf("%s: %s", body.Code, body.Message)
	}
	return fmt.Errorf("unexpected status %d", resp.StatusCode)
}

// drainAndClose はコネクション再利用のためレスポンスボディを読み切って閉じる。
func drainAndClose(body io.ReadCloser) {
	io.Copy(io.Discard, body)
	body.Close()
}
