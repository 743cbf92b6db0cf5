package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

// newAPIServer はサーバーAPIの最小限の振る舞いを再現したテストサーバーを返す。
func newAPIServer(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()

	hasSession := func(r *http.Request) bool {
		c, err := r.Cookie("session_id")
		return err == nil && c.Value == "test-session"
	}

	// Go 1.21のServeMuxはメソッド付きパターンやワイルドカードを解釈できないため、
	// メソッドの振り分けをヘルパーで行う。
	method := func(m string, h http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if r.Method != m {
				w.WriteHeader(http.StatusMethodNotAllowed)
				return
			}
			h(w, r)
		}
	}

	mux.HandleFunc("/auth/google/callback", method(http.MethodGet, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("code") != "valid-code" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			fmt.Fprint(w, `{"code":"AUTH_FAILED","message":"認証に失敗しました。"}`)
			return
		}
		http.SetCookie(w, &http.Cookie{Name: "session_id", Value: "test-session", Path: "/"})
		http.Redirect(w, r, "http://localhost:3000", http.StatusTemporaryRedirect)
	}))

	mux.HandleFunc("/auth/me", method(http.MethodGet, func(w http.ResponseWriter, r *http.Request) {
		if !hasSession(r) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			fmt.Fprint(w, `{"code":"UNAUTHORIZED","message":"ログインが必要です。"}`)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"user-1","email":"taro@example.com","name":"Taro","avatar_url":"https://example.com/a.png"}`)
	}))

	mux.HandleFunc("/auth/logout", method(http.MethodPost, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	mux.HandleFunc("/api/csrf-token", method(http.MethodGet, func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "csrf_token", Value: "test-csrf", Path: "/"})
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"token":"test-csrf"}`)
	}))

	listBookmarks := func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"bookmarks":[{"id":"b-1","title":"Go","url":"https://go.dev","created_at":"2026-08-01T12:00:00Z"}]}`)
	}

	insertBookmark := func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-CSRF-Token") != "test-csrf" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusForbidden)
			fmt.Fprint(w, `{"code":"CSRF_FAILED","message":"リクエストの検証に失敗しました。"}`)
			return
		}
		var req struct {
			Title string `json:"title"`
			URL   string `json:"url"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"id":         "b-new",
			"title":      req.Title,
			"url":        req.URL,
			"created_at": time.Now().UTC().Format(time.RFC3339),
		})
	}

	deleteBookmark := func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimPrefix(r.URL.Path, "/api/bookmarks/")
		if id != "b-1" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `{"code":"BOOKMARK_NOT_FOUND","message":"ブックマークが見つかりません。"}`)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}

	feedBookmarks := func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		if !ok {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)

		fmt.Fprint(w, ": connected\n\n")
		flusher.Flush()
		fmt.Fprint(w, "event: change\ndata: {\"owner_id\":\"user-1\",\"op\":\"INSERT\"}\n\n")
		flusher.Flush()
		fmt.Fprint(w, ": heartbeat\n\n")
		flusher.Flush()
		fmt.Fprint(w, "event: change\ndata: {\"owner_id\":\"user-1\",\"op\":\"DELETE\"}\n\n")
		flusher.Flush()

		<-r.Context().Done()
	}

	mux.HandleFunc("/api/bookmarks", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			listBookmarks(w, r)
		case http.MethodPost:
			insertBookmark(w, r)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})

	mux.HandleFunc("/api/bookmarks/", func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/api/bookmarks/feed" && r.Method == http.MethodGet:
			feedBookmarks(w, r)
		case r.Method == http.MethodDelete:
			deleteBookmark(w, r)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestHTTPBackend(t *testing.T, srv *httptest.Server) *HTTPBackend {
	t.Helper()
	backend, err := NewHTTPBackend(HTTPBackendConfig{BaseURL: srv.URL, Timeout: 5 * time.Second})
	if err != nil {
		t.Fatalf("NewHTTPBackend failed: %v", err)
	}
	return backend
}

func TestHTTPBackend_RequiresBaseURL(t *testing.T) {
	if _, err := NewHTTPBackend(HTTPBackendConfig{}); err == nil {
		t.Error("NewHTTPBackend should fail without a base URL")
	}
}

func TestHTTPBackend_SignInURL(t *testing.T) {
	srv := newAPIServer(t)
	backend := newTestHTTPBackend(t, srv)

	want := srv.URL + "/auth/google/login"
	if got := backend.SignInURL(); got != want {
		t.Errorf("SignInURL() = %q, want %q", got, want)
	}
}

func TestHTTPBackend_ExchangeCode_EstablishesSession(t *testing.T) {
	srv := newAPIServer(t)
	backend := newTestHTTPBackend(t, srv)

	session, err := backend.ExchangeCode(context.Background(), "http://localhost:3000/auth/callback?code=valid-code&state=abc")
	if err != nil {
		t.Fatalf("ExchangeCode failed: %v", err)
	}
	if session.Principal.ID != "user-1" {
		t.Errorf("principal ID = %q, want user-1", session.Principal.ID)
	}

	// セッションCookieがjarに保存され、以降のリクエストで使われる
	current, err := backend.CurrentSession(context.Background())
	if err != nil {
		t.Fatalf("CurrentSession failed: %v", err)
	}
	if current == nil || current.Principal.ID != "user-1" {
		t.Errorf("current session = %+v, want user-1", current)
	}
}

func TestHTTPBackend_ExchangeCode_InvalidCodeFails(t *testing.T) {
	srv := newAPIServer(t)
	backend := newTestHTTPBackend(t, srv)

	_, err := backend.ExchangeCode(context.Background(), "http://localhost:3000/auth/callback?code=used-code")
	if err == nil {
		t.Fatal("ExchangeCode with an invalid code should fail")
	}
}

func TestHTTPBackend_CurrentSession_ReturnsNilWhenUnauthenticated(t *testing.T) {
	srv := newAPIServer(t)
	backend := newTestHTTPBackend(t, srv)

	session, err := backend.CurrentSession(context.Background())
	if err != nil {
		t.Fatalf("CurrentSession failed: %v", err)
	}
	if session != nil {
		t.Errorf("session = %+v, want nil", session)
	}
}

func TestHTTPBackend_List(t *testing.T) {
	srv := newAPIServer(t)
	backend := newTestHTTPBackend(t, srv)

	bookmarks, err := backend.List(context.Background())
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(bookmarks) != 1 || bookmarks[0].ID != "b-1" {
		t.Errorf("bookmarks = %+v, want [b-1]", bookmarks)
	}
	if bookmarks[0].CreatedAt.IsZero() {
		t.Error("CreatedAt should be parsed")
	}
}

func TestHTTPBackend_Insert_SendsCSRFToken(t *testing.T) {
	srv := newAPIServer(t)
	backend := newTestHTTPBackend(t, srv)

	created, err := backend.Insert(context.Background(), "Go", "https://go.dev")
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if created.ID != "b-new" {
		t.Errorf("created ID = %q, want b-new", created.ID)
	}
	if created.Title != "Go" {
		t.Errorf("created title = %q, want Go", created.Title)
	}
}

func TestHTTPBackend_Delete(t *testing.T) {
	srv := newAPIServer(t)
	backend := newTestHTTPBackend(t, srv)

	if err := backend.Delete(context.Background(), "b-1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
}

func TestHTTPBackend_Delete_NotFound(t *testing.T) {
	srv := newAPIServer(t)
	backend := newTestHTTPBackend(t, srv)

	err := backend.Delete(context.Background(), "missing")
	if err == nil {
		t.Fatal("Delete of a missing bookmark should fail")
	}
	if !strings.Contains(err.Error(), "BOOKMARK_NOT_FOUND") {
		t.Errorf("error = %v, want BOOKMARK_NOT_FOUND", err)
	}
}

func TestHTTPBackend_Subscribe_DeliversChangeEvents(t *testing.T) {
	srv := newAPIServer(t)
	backend := newTestHTTPBackend(t, srv)

	events := make(chan struct{}, 8)
	channel, err := backend.Subscribe(context.Background(), func() {
		events <- struct{}{}
	})
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	defer channel.Close()

	// サーバーは2つのchangeイベントを送る。ハートビートはイベントとして扱わない。
	for i := 0; i < 2; i++ {
		select {
		case <-events:
		case <-time.After(5 * time.Second):
			t.Fatalf("timed out waiting for change event %d", i+1)
		}
	}

	select {
	case <-events:
		t.Error("received more change events than the server sent")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestHTTPBackend_Subscribe_CloseStopsCallbacks(t *testing.T) {
	srv := newAPIServer(t)
	backend := newTestHTTPBackend(t, srv)

	events := make(chan struct{}, 8)
	channel, err := backend.Subscribe(context.Background(), func() {
		events <- struct{}{}
	})
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	// 最初のイベントを待ってから閉じる
	select {
	case <-events:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for first change event")
	}

	if err := channel.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	// 二重Closeは安全
	if err := channel.Close(); err != nil {
		t.Fatalf("second Close failed: %v", err)
	}
}
