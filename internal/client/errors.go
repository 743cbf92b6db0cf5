package client

import "fmt"

// AuthError はコード交換またはセッション取得の失敗を表す。
// 回復方法はエントリー画面への遷移。
type AuthError struct {
	Message string
	Err     error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("auth error: %s: %v", e.Message, e.Err)
	}
	return fmt.Sprintf("auth error: %s", e.Message)
}

func (e *AuthError) Unwrap() error { return e.Err }

// FetchError は一覧取得の失敗を表す。
// 回復方法は既知の一覧を保持したままインラインメッセージを表示すること。
type FetchError struct {
	Message string
	Err     error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetch error: %s: %v", e.Message, e.Err)
	}
	return fmt.Sprintf("fetch error: %s", e.Message)
}

func (e *FetchError) Unwrap() error { return e.Err }

// WriteError は追加・削除の失敗を表す。
// 回復方法は入力・行を保持したままインラインメッセージを表示すること。
type WriteError struct {
	Message string
	Err     error
}

func (e *WriteError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("write error: %s: %v", e.Message, e.Err)
	}
	return fmt.Sprintf("write error: %s", e.Message)
}

func (e *WriteError) Unwrap() error { return e.Err }
