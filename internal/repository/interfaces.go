// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"

	"github.com/hitoshi/samkitchen/internal/model"
)

// SettingsCacheKey は解決済み設定を保存するキャッシュキー。
const SettingsCacheKey = "appSettings"

// CacheRepository はローカルのキー・バリューキャッシュの永続化インターフェース。
// 値は不透明な文字列として扱い、内容の検証は呼び出し側が行う。
type CacheRepository interface {
	// Get は指定キーの値を取得する。存在しない場合はfoundがfalseになる。
	Get(ctx context.Context, key string) (value string, found bool, err error)
	// Set は指定キーの値を上書き保存する。
	Set(ctx context.Context, key, value string) error
}

// SessionRepository は管理者セッションの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// DeleteByID は指定IDのセッションを削除する。
	DeleteByID(ctx context.Context, id string) error
}
