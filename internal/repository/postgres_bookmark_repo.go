package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/marksync/internal/model"
)

// PostgresBookmarkRepo はPostgreSQLを使用したブックマークリポジトリ。
// 全クエリがowner_idでスコープされており、他ユーザーの行は
// 存在しないものとして扱われる。
type PostgresBookmarkRepo struct {
	db *sql.DB
}

// NewPostgresBookmarkRepo はPostgresBookmarkRepoを生成する。
func NewPostgresBookmarkRepo(db *sql.DB) *PostgresBookmarkRepo {
	return &PostgresBookmarkRepo{db: db}
}

// ListByOwner は指定ユーザーが所有するブックマークをcreated_at降順で返す。
func (r *PostgresBookmarkRepo) ListByOwner(ctx context.Context, ownerID string) ([]model.Bookmark, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, title, url, owner_id, created_at
		 FROM bookmarks
		 WHERE owner_id = $1
		 ORDER BY created_at DESC`,
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookmarks: %w", err)
	}
	defer rows.Close()

	bookmarks := []model.Bookmark{}
	for rows.Next() {
		var b model.Bookmark
		if err := rows.Scan(&b.ID, &b.Title, &b.URL, &b.OwnerID, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan bookmark: %w", err)
		}
		bookmarks = append(bookmarks, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate bookmarks: %w", err)
	}

	return bookmarks, nil
}

// Create はブックマークを作成する。
// created_atはDB側のdefault now()に任せず呼び出し側の値を使用する。
func (r *PostgresBookmarkRepo) Create(ctx context.Context, bookmark *model.Bookmark) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO bookmarks (id, title, url, owner_id, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		bookmark.ID, bookmark.Title, bookmark.URL, bookmark.OwnerID, bookmark.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create bookmark: %w", err)
	}
	return nil
}

// Delete は指定IDのブックマークを、所有者が一致する場合に限り削除する。
// WHERE句のowner_id条件が行レベルアクセス制御の強制点。
func (r *PostgresBookmarkRepo) Delete(ctx context.Context, id, ownerID string) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM bookmarks WHERE id = $1 AND owner_id = $2`,
		id, ownerID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete bookmark: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return model.NewBookmarkNotFoundError(id)
	}
	return nil
}

// compile-time interface check
var _ BookmarkRepository = (*PostgresBookmarkRepo)(nil)
