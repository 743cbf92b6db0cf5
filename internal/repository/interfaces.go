// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"

	"github.com/hitoshi/marksync/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// CreateWithIdentity はユーザーとidentityを同一トランザクションで作成する。
	CreateWithIdentity(ctx context.Context, user *model.User, identity *model.Identity) error
}

// IdentityRepository は外部IdP紐付け情報の永続化インターフェース。
type IdentityRepository interface {
	// FindByProviderAndProviderUserID はproviderとprovider_user_idでidentityを検索する。
	// 見つからない場合はnilを返す。
	FindByProviderAndProviderUserID(ctx context.Context, provider, providerUserID string) (*model.Identity, error)
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// DeleteByID は指定IDのセッションを削除する。
	DeleteByID(ctx context.Context, id string) error
	// DeleteByUserID は指定ユーザーの全セッションを削除する。
	DeleteByUserID(ctx context.Context, userID string) error
}

// BookmarkRepository はブックマークデータの永続化インターフェース。
// すべての操作はowner_idでスコープされる。アクセス制御の強制点は
// クライアントではなくこの層（とその背後のSQL）である。
type BookmarkRepository interface {
	// ListByOwner は指定ユーザーが所有するブックマークをcreated_at降順で返す。
	ListByOwner(ctx context.Context, ownerID string) ([]model.Bookmark, error)

	// Create はブックマークを作成する。
	Create(ctx context.Context, bookmark *model.Bookmark) error

	// Delete は指定IDのブックマークを、所有者が一致する場合に限り削除する。
	// 行が存在しない、または所有者が一致しない場合はBOOKMARK_NOT_FOUNDエラーを返す。
	// 存在と所有権不一致を区別しないのは、他ユーザーの行の存在を漏らさないため。
	Delete(ctx context.Context, id, ownerID string) error
}
