package client

import (
	"context"
	"strings"

	"github.com/hitoshi/marksync/internal/bookmark"
)

// BookmarkRepository はブックマークコレクションへのCRUDファサード。
// 所有者によるスコープはサーバー側の行レベルポリシーで強制されるため、
// クライアントはフィルタを付けない。
type BookmarkRepository struct {
	backend Backend
}

// NewBookmarkRepository はBookmarkRepositoryを生成する。
func NewBookmarkRepository(backend Backend) *BookmarkRepository {
	return &BookmarkRepository{backend: backend}
}

// List は現在のユーザーのブックマーク一覧を作成日時の降順で返す。
// 失敗時はFetchErrorを返す。呼び出し側は既知の一覧を保持すること。
func (r *BookmarkRepository) List(ctx context.Context) ([]Bookmark, error) {
	bookmarks, err := r.backend.List(ctx)
	if err != nil {
		return nil, &FetchError{Message: "ブックマークの取得に失敗しました。", Err: err}
	}
	return bookmarks, nil
}

// Insert はURLを正規化してブックマークを作成し、サーバー採番されたレコードを返す。
// スキームを持たない入力には https:// を前置する。
// 失敗時はWriteErrorを返す。呼び出し側はフォーム入力を保持すること。
func (r *BookmarkRepository) Insert(ctx context.Context, title, url string) (*Bookmark, error) {
	title = strings.TrimSpace(title)
	normalized := bookmark.NormalizeURL(url)
	if title == "" || normalized == "" {
		return nil, &WriteError{Message: "タイトルとURLを入力してください。"}
	}

	created, err := r.backend.Insert(ctx, title, normalized)
	if err != nil {
		return nil, &WriteError{Message: "ブックマークの保存に失敗しました。", Err: err}
	}
	return created, nil
}

// Delete は指定IDのブックマークを削除する。
// 存在しない・所有していない場合もWriteErrorを返す。呼び出し側は行を残すこと。
func (r *BookmarkRepository) Delete(ctx context.Context, id string) error {
	if err := r.backend.Delete(ctx, id); err != nil {
		return &WriteError{Message: "ブックマークの削除に失敗しました。", Err: err}
	}
	return nil
}
