package client

import "sync"

// SessionState は認証状態を表す。
type SessionState int

const (
	// StatePending はセッションの有無を確認中であることを示す。ページ読み込み直後の初期状態。
	StatePending SessionState = iota
	// StateAuthenticated はセッションが確立済みであることを示す。
	StateAuthenticated
	// StateUnauthenticated はセッションが存在しないことを示す。
	StateUnauthenticated
)

// String はSessionStateの文字列表現を返す。
func (s SessionState) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateAuthenticated:
		return "authenticated"
	case StateUnauthenticated:
		return "unauthenticated"
	default:
		return "unknown"
	}
}

// SessionStore は現在の認証状態と認証済みユーザーを保持する。
// 状態を書き換えるのはバックエンドの認証イベント（HandleSignedIn /
// HandleSignedOut / HandleInitialSession）のみで、他のコンポーネントは
// 読み取りとリスナー登録だけを行う。
type SessionStore struct {
	mu        sync.RWMutex
	state     SessionState
	principal *Principal

	nextListenerID int
	listeners      map[int]func(SessionState, *Principal)
}

// NewSessionStore は初期状態pendingのSessionStoreを生成する。
func NewSessionStore() *SessionStore {
	return &SessionStore{
		state:     StatePending,
		listeners: make(map[int]func(SessionState, *Principal)),
	}
}

// State は現在の認証状態を返す。
func (s *SessionStore) State() SessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Principal は認証済みユーザーを返す。未認証の場合はnil。
func (s *SessionStore) Principal() *Principal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.principal == nil {
		return nil
	}
	p := *s.principal
	return &p
}

// OnChange は状態変化リスナーを登録し、解除用の関数を返す。
// リスナーはロックの外で呼び出される。
func (s *SessionStore) OnChange(fn func(SessionState, *Principal)) func() {
	s.mu.Lock()
	id := s.nextListenerID
	s.nextListenerID++
	s.listeners[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// HandleSignedIn はサインイン通知を処理する。
// principalが空の場合はセッションが作れなかったものとしてunauthenticatedに遷移する。
func (s *SessionStore) HandleSignedIn(principal *Principal) {
	if principal == nil {
		s.transition(StateUnauthenticated, nil)
		return
	}
	s.transition(StateAuthenticated, principal)
}

// HandleSignedOut はサインアウト通知を処理する。
func (s *SessionStore) HandleSignedOut() {
	s.transition(StateUnauthenticated, nil)
}

// HandleInitialSession は初期セッション通知を処理する。
// セッションが存在すればauthenticated、存在しなければunauthenticatedに遷移する。
func (s *SessionStore) HandleInitialSession(principal *Principal) {
	if principal == nil {
		s.transition(StateUnauthenticated, nil)
		return
	}
	s.transition(StateAuthenticated, principal)
}

func (s *SessionStore) transition(state SessionState, principal *Principal) {
	s.mu.Lock()
	s.state = state
	s.principal = principal

	// リスナーをロックの外で呼び出すためコピーする
	fns := make([]func(SessionState, *Principal), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(state, principal)
	}
}
