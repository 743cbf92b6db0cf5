package client

import "sync"

// ViewModel はブックマーク一覧画面の表示状態を保持する。
// 順序付きの一覧、入力フォーム、操作中フラグ、インラインエラーメッセージを持つ。
type ViewModel struct {
	mu sync.Mutex

	bookmarks []Bookmark

	titleField string
	urlField   string

	adding     bool
	deletingID string

	errMsg string
}

// NewViewModel は空のViewModelを生成する。
func NewViewModel() *ViewModel {
	return &ViewModel{}
}

// Bookmarks は現在の一覧のコピーを返す。
func (v *ViewModel) Bookmarks() []Bookmark {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]Bookmark, len(v.bookmarks))
	copy(out, v.bookmarks)
	return out
}

// ApplyList は一覧全体を置き換える。
// フィードイベントは行を区別しないため、マージではなく全置換が正しい。
func (v *ViewModel) ApplyList(bookmarks []Bookmark) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.bookmarks = make([]Bookmark, len(bookmarks))
	copy(v.bookmarks, bookmarks)
}

// ApplyInsert は作成されたレコードを先頭に追加し、フォームをクリアする。
// フィード経由の再取得を待たない楽観的更新。
func (v *ViewModel) ApplyInsert(created Bookmark) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.bookmarks = append([]Bookmark{created}, v.bookmarks...)
	v.titleField = ""
	v.urlField = ""
	v.adding = false
}

// ApplyDelete は指定IDのレコードだけを一覧から取り除く。
func (v *ViewModel) ApplyDelete(id string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := v.bookmarks[:0]
	for _, b := range v.bookmarks {
		if b.ID != id {
			out = append(out, b)
		}
	}
	v.bookmarks = out
	v.deletingID = ""
}

// SetForm は入力フォームの値を設定する。
func (v *ViewModel) SetForm(title, url string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.titleField = title
	v.urlField = url
}

// Form は入力フォームの値を返す。
func (v *ViewModel) Form() (title, url string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.titleField, v.urlField
}

// BeginAdd は追加操作の開始を記録する。
func (v *ViewModel) BeginAdd() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.adding = true
}

// Adding は追加操作中かどうかを返す。
func (v *ViewModel) Adding() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.adding
}

// BeginDelete は指定IDの削除操作の開始を記録する。
func (v *ViewModel) BeginDelete(id string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.deletingID = id
}

// DeletingID は削除操作中の行IDを返す。操作中でなければ空文字列。
func (v *ViewModel) DeletingID() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.deletingID
}

// Fail はエラーメッセージを設定する。一覧とフォームは変更しない。
// 進行中フラグは解除する。
func (v *ViewModel) Fail(message string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.errMsg = message
	v.adding = false
	v.deletingID = ""
}

// ErrorMessage は現在のエラーメッセージを返す。エラーがなければ空文字列。
func (v *ViewModel) ErrorMessage() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.errMsg
}

// DismissError はエラーメッセージを消す。
func (v *ViewModel) DismissError() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.errMsg = ""
}
