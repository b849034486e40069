// Package settings は設定ドキュメントの解決（既定値→ローカルキャッシュ→リモート）と、
// 管理者による保存時のリモート同期を提供する。
package settings

import "github.com/hitoshi/samkitchen/internal/model"

// 既定の設定値。
const (
	DefaultAdminUsername           = "admin"
	DefaultAdminPassword           = "password123"
	DefaultSubscriptionChannelLink = "https://t.me/your_channel_link"
	DefaultSubscriptionMessage     = "لإنشاء وصفات غير محدودة، يرجى الاشتراك في قناتنا أولاً! ستحصل على آخر التحديثات والوصفات المميزة."
)

// Defaults は組み込みの既定設定を返す。呼び出しごとに新しい値を返す。
func Defaults() model.Settings {
	return model.Settings{
		SubscriptionMessage:     DefaultSubscriptionMessage,
		SubscriptionChannelLink: DefaultSubscriptionChannelLink,
		Advertisements: []model.Advertisement{
			{
				ImageURL: "https://picsum.photos/800/250",
				Text:     "اكتشف عالماً من النكهات. انقر هنا لتصفح أحدث معدات المطبخ.",
				LinkURL:  "#",
			},
		},
		AdminUsername: DefaultAdminUsername,
		AdminPassword: DefaultAdminPassword,
	}
}
