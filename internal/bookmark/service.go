// Package bookmark はブックマークの作成・一覧・削除のビジネスロジックを提供する。
package bookmark

import (
	"context"
	"errors"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/marksync/internal/metrics"
	"github.com/hitoshi/marksync/internal/model"
	"github.com/hitoshi/marksync/internal/repository"
	"github.com/hitoshi/marksync/internal/security"
)

// maxTitleLength はタイトルの最大文字数。bookmarksテーブルの列定義に合わせる。
const maxTitleLength = 512

// schemePattern はURL先頭のスキーム (例: "https://") の有無を判定する。
// 単純な前方一致ではなく正式なスキーム構文で判定することで、
// "http-tools.example.com" のようなホスト名を誤ってスキーム扱いしない。
var schemePattern = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9+.-]*://`)

// Service はブックマークに関するビジネスロジックを提供する。
type Service struct {
	repo      repository.BookmarkRepository
	guard     security.URLGuardService
	sanitizer security.TitleSanitizer
	collector metrics.MetricsCollector
}

// NewService はServiceを生成する。
func NewService(
	repo repository.BookmarkRepository,
	guard security.URLGuardService,
	sanitizer security.TitleSanitizer,
	collector metrics.MetricsCollector,
) *Service {
	return &Service{
		repo:      repo,
		guard:     guard,
		sanitizer: sanitizer,
		collector: collector,
	}
}

// List は指定ユーザーのブックマーク一覧を作成日時の降順で返す。
func (s *Service) List(ctx context.Context, ownerID string) ([]model.Bookmark, error) {
	bookmarks, err := s.repo.ListByOwner(ctx, ownerID)
	if err != nil {
		slog.Error("failed to list bookmarks",
			slog.String("owner_id", ownerID),
			slog.String("error", err.Error()),
		)
		return nil, model.NewListFailedError()
	}
	return bookmarks, nil
}

// Add はブックマークを検証・正規化して保存する。
// タイトルはHTMLタグを除去した上で空チェックを行い、
// URLはスキーム補完後にスキーム・宛先の検証を行う。
func (s *Service) Add(ctx context.Context, ownerID, title, rawURL string) (*model.Bookmark, error) {
	cleanTitle := s.sanitizer.Sanitize(title)
	if cleanTitle == "" {
		return nil, model.NewInvalidTitleError()
	}
	if len([]rune(cleanTitle)) > maxTitleLength {
		cleanTitle = string([]rune(cleanTitle)[:maxTitleLength])
	}

	normalizedURL := NormalizeURL(rawURL)
	if normalizedURL == "" {
		return nil, model.NewInvalidURLError("URLが空です")
	}

	if err := s.guard.ValidateURL(normalizedURL); err != nil {
		if errors.Is(err, security.ErrBlockedDestination) {
			return nil, model.NewURLBlockedError()
		}
		return nil, model.NewInvalidURLError(err.Error())
	}

	bookmark := &model.Bookmark{
		ID:        uuid.New().String(),
		Title:     cleanTitle,
		URL:       normalizedURL,
		OwnerID:   ownerID,
		CreatedAt: time.Now(),
	}

	if err := s.repo.Create(ctx, bookmark); err != nil {
		slog.Error("failed to create bookmark",
			slog.String("owner_id", ownerID),
			slog.String("error", err.Error()),
		)
		return nil, model.NewWriteFailedError()
	}

	s.collector.RecordBookmarkCreated()
	slog.Info("bookmark created",
		slog.String("bookmark_id", bookmark.ID),
		slog.String("owner_id", ownerID),
	)

	return bookmark, nil
}

// Delete は指定IDのブックマークを削除する。
// 他ユーザー所有のブックマークや存在しないIDの場合はnot foundエラーを返す。
func (s *Service) Delete(ctx context.Context, bookmarkID, ownerID string) error {
	if err := s.repo.Delete(ctx, bookmarkID, ownerID); err != nil {
		var apiErr *model.APIError
		if errors.As(err, &apiErr) {
			return err
		}
		slog.Error("failed to delete bookmark",
			slog.String("bookmark_id", bookmarkID),
			slog.String("owner_id", ownerID),
			slog.String("error", err.Error()),
		)
		return model.NewWriteFailedError()
	}

	s.collector.RecordBookmarkDeleted()
	slog.Info("bookmark deleted",
		slog.String("bookmark_id", bookmarkID),
		slog.String("owner_id", ownerID),
	)

	return nil
}

// NormalizeURL は入力URLを前後の空白除去とスキーム補完で正規化する。
// スキームを持たない入力 (例: "example.com") には "https://" を補完し、
// "http://" や "https://" が明示された入力はそのまま保持する。
func NormalizeURL(rawURL string) string {
	trimmed := strings.TrimSpace(rawURL)
	if trimmed == "" {
		return ""
	}
	if schemePattern.MatchString(trimmed) {
		return trimmed
	}
	return "https://" + trimmed
}
