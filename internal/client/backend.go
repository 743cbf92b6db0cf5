// Package client はセッションゲート付きライブ同期ビューのコーディネーターを提供する。
// 認証状態の管理、OAuthリダイレクトの完了処理、変更フィードの購読ライフサイクル、
// ブックマーク一覧のビューモデルを、差し替え可能なBackendの上に実装する。
package client

import (
	"context"
	"time"
)

// Principal は認証済みのユーザー識別情報を表す。
type Principal struct {
	ID        string
	Email     string
	Name      string
	AvatarURL string
}

// Session は確立済みのログインセッションを表す。
type Session struct {
	Principal Principal
}

// Bookmark はクライアント側で扱うブックマークを表す。
type Bookmark struct {
	ID        string
	Title     string
	URL       string
	CreatedAt time.Time
}

// Channel は開いている変更フィードチャネルのハンドル。
type Channel interface {
	// Close はチャネルを閉じる。以降の変更通知コールバックは発火しない。
	Close() error
}

// Backend はマネージドバックエンドとの抽象的な契約を表す。
// 実装はHTTPBackend（本番）またはテスト用のフェイク。
type Backend interface {
	// SignInURL はOAuthフローを開始するURLを返す。
	SignInURL() string

	// ExchangeCode はリダイレクトURLに含まれる認可コードをセッションに交換する。
	// コードは1回しか使えない。
	ExchangeCode(ctx context.Context, redirectURL string) (*Session, error)

	// CurrentSession は現在のセッションを返す。未認証の場合は(nil, nil)。
	CurrentSession(ctx context.Context) (*Session, error)

	// SignOut はセッションを破棄する。
	SignOut(ctx context.Context) error

	// List は現在のユーザーのブックマーク一覧を作成日時の降順で返す。
	List(ctx context.Context) ([]Bookmark, error)

	// Insert はブックマークを作成し、サーバー採番されたレコードを返す。
	Insert(ctx context.Context, title, url string) (*Bookmark, error)

	// Delete は指定IDのブックマークを削除する。
	Delete(ctx context.Context, id string) error

	// Subscribe はブックマークコレクションの変更フィードを開く。
	// いずれかの行が変更されるたびにonChangeが呼ばれる。
	// どの行が変わったかは区別しない。呼び出し側が一覧を再取得する。
	Subscribe(ctx context.Context, onChange func()) (Channel, error)
}
