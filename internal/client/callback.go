package client

import (
	"context"
	"log/slog"
	"net/url"
	"sync"
)

// NavigationTarget はリダイレクト完了後の遷移先を表す。
type NavigationTarget string

const (
	// NavigateToBookmarks はデータビュー（ブックマーク一覧）への遷移を示す。
	NavigateToBookmarks NavigationTarget = "bookmarks"
	// NavigateToEntry はエントリー画面（ログイン）への遷移を示す。
	NavigateToEntry NavigationTarget = "entry"
)

// RedirectOutcome はリダイレクト完了処理の結果。
type RedirectOutcome struct {
	// Target は遷移先の画面。
	Target NavigationTarget
	// CleanURL は認可コードを取り除いた表示用URL。
	// ブラウザ履歴・Referer経由のコード漏洩を防ぐ。
	CleanURL string
	// Message は失敗時にユーザーへ表示する短いメッセージ。成功時は空。
	Message string
}

// RedirectHandler はOAuthプロバイダーからのリダイレクトを完了する。
// 認可コードを明示的にセッションへ交換するACTIVE戦略を採る。
// 認可コードは1回しか使えないため、再レンダリングによる多重呼び出しでも
// 交換は正確に1回だけ行われる。
type RedirectHandler struct {
	backend Backend
	store   *SessionStore

	once    sync.Once
	outcome RedirectOutcome
}

// NewRedirectHandler はRedirectHandlerを生成する。
func NewRedirectHandler(backend Backend, store *SessionStore) *RedirectHandler {
	return &RedirectHandler{
		backend: backend,
		store:   store,
	}
}

// Complete はコールバックURLの認可コードをセッションに交換し、遷移先を返す。
// 2回目以降の呼び出しは交換を行わず、初回の結果をそのまま返す。
// 交換失敗時はunauthenticatedとして扱い、エントリー画面へ誘導する。リトライはしない。
func (h *RedirectHandler) Complete(ctx context.Context, rawURL string) RedirectOutcome {
	h.once.Do(func() {
		h.outcome = h.complete(ctx, rawURL)
	})
	return h.outcome
}

func (h *RedirectHandler) complete(ctx context.Context, rawURL string) RedirectOutcome {
	cleanURL := stripAuthParams(rawURL)

	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Query().Get("code") == "" {
		slog.Warn("redirect completion without authorization code")
		h.store.HandleInitialSession(nil)
		return RedirectOutcome{
			Target:   NavigateToEntry,
			CleanURL: cleanURL,
			Message:  "ログインに失敗しました。もう一度お試しください。",
		}
	}

	session, err := h.backend.ExchangeCode(ctx, rawURL)
	if err != nil {
		slog.Warn("authorization code exchange failed", slog.String("error", err.Error()))
		h.store.HandleSignedOut()
		return RedirectOutcome{
			Target:   NavigateToEntry,
			CleanURL: cleanURL,
			Message:  "ログインに失敗しました。もう一度お試しください。",
		}
	}

	h.store.HandleSignedIn(&session.Principal)
	return RedirectOutcome{
		Target:   NavigateToBookmarks,
		CleanURL: cleanURL,
	}
}

// stripAuthParams はURLから認可コード関連のクエリパラメータを取り除く。
func stripAuthParams(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	q := parsed.Query()
	q.Del("code")
	q.Del("state")
	parsed.RawQuery = q.Encode()
	return parsed.String()
}
