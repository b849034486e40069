// Package subscription は購読誘導ゲート（未購読かつ非管理者の生成要求を止める）を提供する。
// 購読状態は訪問者ごとのCookieで保持し、一度trueになれば失効させない。
package subscription

import (
	"net/http"

	"github.com/hitoshi/samkitchen/internal/model"
)

const (
	// CookieName は購読状態を保持するCookie名。
	CookieName = "isSubscribed"
	// cookieValue は購読済みを表す唯一の値。
	cookieValue = "true"
	// cookieMaxAge はCookieの有効期間（1年）。
	cookieMaxAge = 365 * 24 * 60 * 60
)

// SettingsSource は現在の設定を返す。*settings.Store がこれを満たす。
type SettingsSource interface {
	Current() model.Settings
}

// Decision はゲート判定の結果。許可されない場合は誘導メッセージと購読リンクを含む。
type Decision struct {
	Allowed bool
	Message string
	Link    string
}

// CookieOptions は購読Cookieの属性。
type CookieOptions struct {
	Secure bool
	Domain string
}

// Gate は購読誘導ゲート。判定は呼び出し時点の設定スナップショットに対して行う。
type Gate struct {
	settings SettingsSource
	cookie   CookieOptions
}

// NewGate はGateを生成する。
func NewGate(settings SettingsSource, cookie CookieOptions) *Gate {
	return &Gate{settings: settings, cookie: cookie}
}

// Check は生成要求を通すかを判定する。
// 未購読かつ管理者でない場合のみ拒否し、その時点の誘導メッセージとリンクを返す。
func (g *Gate) Check(subscribed, admin bool) Decision {
	if subscribed || admin {
		return Decision{Allowed: true}
	}
	current := g.settings.Current()
	return Decision{
		Allowed: false,
		Message: current.SubscriptionMessage,
		Link:    current.SubscriptionChannelLink,
	}
}

// Link は現在の購読リンクを返す。
func (g *Gate) Link() string {
	return g.settings.Current().SubscriptionChannelLink
}

// IsSubscribed はリクエストの購読Cookieが購読済みを示すかを返す。
func IsSubscribed(r *http.Request) bool {
	c, err := r.Cookie(CookieName)
	if err != nil {
		return false
	}
	return c.Value == cookieValue
}

// MarkSubscribed は購読済みCookieを設定する。
// 外部の購読手続きが実際に完了したかは検証しない。
func (g *Gate) MarkSubscribed(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    cookieValue,
		Path:     "/",
		Domain:   g.cookie.Domain,
		MaxAge:   cookieMaxAge,
		HttpOnly: true,
		Secure:   g.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}
