package client

import (
	"context"
	"log/slog"
	"sync"
)

// SubscriberState は変更フィード購読の状態を表す。
type SubscriberState int

const (
	// SubscriberIdle はチャネルが開いていないことを示す。
	SubscriberIdle SubscriberState = iota
	// SubscriberSubscribing はチャネルを開いている途中であることを示す。
	SubscriberSubscribing
	// SubscriberActive はチャネルが開いており変更通知を受け取ることを示す。
	SubscriberActive
)

// ChangeFeedSubscriber はブックマークコレクションの変更フィード購読を管理する。
//
// 認証済みのときだけ購読でき、開くチャネルは常に1本以下。
// どのイベントも一覧の全件再取得を1回引き起こす。行単位の差分は取らない。
// SessionStoreがauthenticatedから離れると自動的に購読を解除する。
// 一時的なネットワーク断からの再接続はバックエンド側の責務。
type ChangeFeedSubscriber struct {
	backend Backend
	repo    *BookmarkRepository
	store   *SessionStore

	// onList は再取得成功時に新しい一覧とともに呼ばれる。
	onList func([]Bookmark)
	// onError は再取得失敗時に呼ばれる。呼び出し側は既知の一覧を保持する。
	onError func(error)

	mu      sync.Mutex
	state   SubscriberState
	channel Channel
	ctx     context.Context

	unwatchStore func()
}

// NewChangeFeedSubscriber はChangeFeedSubscriberを生成し、
// セッション状態の監視を開始する。不要になったらCloseを呼ぶこと。
func NewChangeFeedSubscriber(backend Backend, store *SessionStore, onList func([]Bookmark), onError func(error)) *ChangeFeedSubscriber {
	s := &ChangeFeedSubscriber{
		backend: backend,
		repo:    NewBookmarkRepository(backend),
		store:   store,
		onList:  onList,
		onError: onError,
	}

	// authenticated以外への遷移で購読を確実に畳む。
	// サインアウト後に再取得コールバックが飛ぶのはリソースリーク。
	s.unwatchStore = store.OnChange(func(state SessionState, _ *Principal) {
		if state != StateAuthenticated {
			s.Disarm()
		}
	})

	return s
}

// Arm は変更フィードの購読を開始する。
// 未認証の場合はAuthErrorを返す。すでに購読中の場合は何もしない。
func (s *ChangeFeedSubscriber) Arm(ctx context.Context) error {
	s.mu.Lock()
	if s.state != SubscriberIdle {
		s.mu.Unlock()
		return nil
	}
	if s.store.State() != StateAuthenticated {
		s.mu.Unlock()
		return &AuthError{Message: "ログインしていません。"}
	}
	s.state = SubscriberSubscribing
	s.ctx = ctx
	s.mu.Unlock()

	channel, err := s.backend.Subscribe(ctx, s.handleChange)
	if err != nil {
		s.mu.Lock()
		s.state = SubscriberIdle
		s.ctx = nil
		s.mu.Unlock()
		return &FetchError{Message: "変更フィードの購読に失敗しました。", Err: err}
	}

	s.mu.Lock()
	// 購読の間にサインアウトされていたら即座に畳む
	if s.store.State() != StateAuthenticated {
		s.state = SubscriberIdle
		s.ctx = nil
		s.mu.Unlock()
		channel.Close()
		return &AuthError{Message: "ログインしていません。"}
	}
	s.state = SubscriberActive
	s.channel = channel
	s.mu.Unlock()

	slog.Debug("change feed armed")
	return nil
}

// Disarm は購読を解除しチャネルを閉じる。以降の再取得コールバックは発火しない。
// 購読していない場合は何もしない。
func (s *ChangeFeedSubscriber) Disarm() {
	s.mu.Lock()
	channel := s.channel
	s.channel = nil
	s.ctx = nil
	wasActive := s.state != SubscriberIdle
	s.state = SubscriberIdle
	s.mu.Unlock()

	if channel != nil {
		channel.Close()
	}
	if wasActive {
		slog.Debug("change feed disarmed")
	}
}

// Close は購読とセッション状態の監視を終了する。
func (s *ChangeFeedSubscriber) Close() {
	s.Disarm()
	if s.unwatchStore != nil {
		s.unwatchStore()
		s.unwatchStore = nil
	}
}

// State は現在の購読状態を返す。
func (s *ChangeFeedSubscriber) State() SubscriberState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// OpenChannels は開いているチャネル数を返す。常に0または1。
func (s *ChangeFeedSubscriber) OpenChannels() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.channel != nil {
		return 1
	}
	return 0
}

// handleChange は変更通知ごとに一覧の全件再取得を行う。
// 購読解除後に届いた通知は無視する。
func (s *ChangeFeedSubscriber) handleChange() {
	s.mu.Lock()
	if s.state != SubscriberActive {
		s.mu.Unlock()
		return
	}
	ctx := s.ctx
	s.mu.Unlock()

	bookmarks, err := s.repo.List(ctx)
	if err != nil {
		if s.onError != nil {
			s.onError(err)
		}
		return
	}

	// 再取得完了までに購読解除された場合は結果を捨てる
	s.mu.Lock()
	active := s.state == SubscriberActive
	s.mu.Unlock()
	if !active {
		return
	}

	if s.onList != nil {
		s.onList(bookmarks)
	}
}
