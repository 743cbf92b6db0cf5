// Package model はドメインモデルを定義する。
package model

import "time"

// Bookmark はユーザーが保存したブックマークを表す。
// OwnerIDは作成したユーザーのIDで、行レベルのアクセス制御に使用される。
// ユーザーは自分がOwnerであるブックマークのみ閲覧・削除できる。
type Bookmark struct {
	ID        string
	Title     string
	URL       string
	OwnerID   string
	CreatedAt time.Time
}
