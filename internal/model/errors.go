// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, fetch, write, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeUnauthorized     = "UNAUTHORIZED"
	ErrCodeAuthFailed       = "AUTH_FAILED"
	ErrCodeInvalidTitle     = "INVALID_TITLE"
	ErrCodeInvalidURL       = "INVALID_URL"
	ErrCodeURLBlocked       = "URL_BLOCKED"
	ErrCodeBookmarkNotFound = "BOOKMARK_NOT_FOUND"
	ErrCodeListFailed       = "LIST_FAILED"
	ErrCodeWriteFailed      = "WRITE_FAILED"
	ErrCodeUserNotFound     = "USER_NOT_FOUND"
	ErrCodeCSRFFailed       = "CSRF_FAILED"
)

// NewUnauthorizedError は未認証エラーを生成する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "認証が必要です。",
		Category: "auth",
		Action:   "ログインしてください。",
	}
}

// NewAuthFailedError は認証フロー失敗エラーを生成する。
// 認可コードの交換失敗（無効・期限切れ・再利用）を含む。
func NewAuthFailedError() *APIError {
	return &APIError{
		Code:     ErrCodeAuthFailed,
		Message:  "認証に失敗しました。",
		Category: "auth",
		Action:   "ログイン画面からやり直してください。",
	}
}

// NewInvalidTitleError はタイトル未入力エラーを生成する。
func NewInvalidTitleError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidTitle,
		Message:  "タイトルを入力してください。",
		Category: "validation",
		Action:   "ブックマークのタイトルを入力してください。",
	}
}

// NewInvalidURLError は無効なURLエラーを生成する。
func NewInvalidURLError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidURL,
		Message:  fmt.Sprintf("無効なURLです: %s", reason),
		Category: "validation",
		Action:   "正しいURL形式（http:// または https:// で始まるURL）を入力してください。",
	}
}

// NewURLBlockedError はブロック対象URLエラーを生成する。
func NewURLBlockedError() *APIError {
	return &APIError{
		Code:     ErrCodeURLBlocked,
		Message:  "セキュリティポリシーにより、指定されたURLは保存できません。",
		Category: "validation",
		Action:   "公開されているWebサイトのURLを入力してください。ローカルネットワークやプライベートIPのURLは保存できません。",
	}
}

// NewBookmarkNotFoundError はブックマーク未検出エラーを生成する。
// 他ユーザーが所有する行への操作も、所有権スコープにより未検出として扱われる。
func NewBookmarkNotFoundError(bookmarkID string) *APIError {
	return &APIError{
		Code:     ErrCodeBookmarkNotFound,
		Message:  fmt.Sprintf("指定されたブックマークが見つかりません: %s", bookmarkID),
		Category: "write",
		Action:   "一覧を更新してから再度お試しください。",
	}
}

// NewListFailedError は一覧取得失敗エラーを生成する。
func NewListFailedError() *APIError {
	return &APIError{
		Code:     ErrCodeListFailed,
		Message:  "ブックマーク一覧の取得に失敗しました。",
		Category: "fetch",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewWriteFailedError は書き込み失敗エラーを生成する。
func NewWriteFailedError() *APIError {
	return &APIError{
		Code:     ErrCodeWriteFailed,
		Message:  "ブックマークの保存に失敗しました。",
		Category: "write",
		Action:   "入力内容はそのまま保持されています。しばらく待ってから再度お試しください。",
	}
}

// NewCSRFFailedError はCSRFトークン検証失敗エラーを生成する。
func NewCSRFFailedError() *APIError {
	return &APIError{
		Code:     ErrCodeCSRFFailed,
		Message:  "リクエストの検証に失敗しました。",
		Category: "auth",
		Action:   "ページを再読み込みしてから再度お試しください。",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "ユーザーが見つかりません。",
		Category: "auth",
		Action:   "ログインし直してください。",
	}
}
