package model

import "time"

// Session は管理者のログインセッションを表す。
// 有効期限の概念は持たず、Cookieの有効期間のみで失効する。
type Session struct {
	ID        string
	Username  string
	CreatedAt time.Time
}
