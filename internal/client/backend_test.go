package client

import (
	"context"
	"errors"
	"sync"
)

// mockBackend はテスト用のBackend実装。
type mockBackend struct {
	signInURLFunc      func() string
	exchangeCodeFunc   func(ctx context.Context, redirectURL string) (*Session, error)
	currentSessionFunc func(ctx context.Context) (*Session, error)
	signOutFunc        func(ctx context.Context) error
	listFunc           func(ctx context.Context) ([]Bookmark, error)
	insertFunc         func(ctx context.Context, title, url string) (*Bookmark, error)
	deleteFunc         func(ctx context.Context, id string) error
	subscribeFunc      func(ctx context.Context, onChange func()) (Channel, error)
}

// compile-time interface check
var _ Backend = (*mockBackend)(nil)

func (m *mockBackend) SignInURL() string {
	if m.signInURLFunc != nil {
		return m.signInURLFunc()
	}
	return "https://example.com/auth/google/login"
}

func (m *mockBackend) ExchangeCode(ctx context.Context, redirectURL string) (*Session, error) {
	if m.exchangeCodeFunc != nil {
		return m.exchangeCodeFunc(ctx, redirectURL)
	}
	return nil, errors.New("not implemented")
}

func (m *mockBackend) CurrentSession(ctx context.Context) (*Session, error) {
	if m.currentSessionFunc != nil {
		return m.currentSessionFunc(ctx)
	}
	return nil, nil
}

func (m *mockBackend) SignOut(ctx context.Context) error {
	if m.signOutFunc != nil {
		return m.signOutFunc(ctx)
	}
	return nil
}

func (m *mockBackend) List(ctx context.Context) ([]Bookmark, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx)
	}
	return nil, errors.New("not implemented")
}

func (m *mockBackend) Insert(ctx context.Context, title, url string) (*Bookmark, error) {
	if m.insertFunc != nil {
		return m.insertFunc(ctx, title, url)
	}
	return nil, errors.New("not implemented")
}

func (m *mockBackend) Delete(ctx context.Context, id string) error {
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, id)
	}
	return errors.New("not implemented")
}

func (m *mockBackend) Subscribe(ctx context.Context, onChange func()) (Channel, error) {
	if m.subscribeFunc != nil {
		return m.subscribeFunc(ctx, onChange)
	}
	return nil, errors.New("not implemented")
}

// fakeChannel は開閉状態を記録するテスト用のChannel実装。
type fakeChannel struct {
	mu     sync.Mutex
	closed bool
}

func (c *fakeChannel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeChannel) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// feedBackend は変更フィードの開閉を追跡するテスト用バックエンド。
// openChannelsで現在開いているチャネル数を確認できる。
type feedBackend struct {
	mu        sync.Mutex
	bookmarks []Bookmark
	channels  []*fakeChannel
	onChanges []func()
}

var _ Backend = (*feedBackend)(nil)

func (f *feedBackend) SignInURL() string { return "https://example.com/login" }

func (f *feedBackend) ExchangeCode(ctx context.Context, redirectURL string) (*Session, error) {
	return nil, errors.New("not supported")
}

func (f *feedBackend) CurrentSession(ctx context.Context) (*Session, error) { return nil, nil }

func (f *feedBackend) SignOut(ctx context.Context) error { return nil }

func (f *feedBackend) List(ctx context.Context) ([]Bookmark, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Bookmark, len(f.bookmarks))
	copy(out, f.bookmarks)
	return out, nil
}

func (f *feedBackend) Insert(ctx context.Context, title, url string) (*Bookmark, error) {
	return nil, errors.New("not supported")
}

func (f *feedBackend) Delete(ctx context.Context, id string) error {
	return errors.New("not supported")
}

func (f *feedBackend) Subscribe(ctx context.Context, onChange func()) (Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := &fakeChannel{}
	f.channels = append(f.channels, ch)
	f.onChanges = append(f.onChanges, onChange)
	return ch, nil
}

// setBookmarks はリモートの一覧を差し替える。
func (f *feedBackend) setBookmarks(bookmarks []Bookmark) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bookmarks = bookmarks
}

// fireChange はコレクションへのリモート変更イベントを発火する。
func (f *feedBackend) fireChange() {
	f.mu.Lock()
	fns := make([]func(), len(f.onChanges))
	copy(fns, f.onChanges)
	f.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

// openChannels は閉じられていないチャネル数を返す。
func (f *feedBackend) openChannels() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, ch := range f.channels {
		if !ch.isClosed() {
			n++
		}
	}
	return n
}
