package handler

import (
	"net/http"
	"net/url"

	"github.com/hitoshi/samkitchen/internal/middleware"
)

// SubscriptionMarker は購読状態の記録と購読リンクの取得を行う。subscription.Gateが実装する。
type SubscriptionMarker interface {
	Link() string
	MarkSubscribed(w http.ResponseWriter)
}

// SubscriptionHandler は購読の記録を行うハンドラー。
type SubscriptionHandler struct {
	marker SubscriptionMarker
}

// NewSubscriptionHandler はSubscriptionHandlerを生成する。
func NewSubscriptionHandler(marker SubscriptionMarker) *SubscriptionHandler {
	return &SubscriptionHandler{marker: marker}
}

type subscribeResponse struct {
	Subscribed bool   `json:"subscribed"`
	Link       string `json:"link"`
}

// Subscribe は購読済みとして記録し、購読リンクを返す。
// POST /api/subscribe
// 一度購読済みになった訪問者は以後ゲートで止められない。
func (h *SubscriptionHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	h.marker.MarkSubscribed(w)
	middleware.WriteJSON(w, http.StatusOK, subscribeResponse{Subscribed: true, Link: h.marker.Link()})
}

// SubscribeAndRedirect は購読済みとして記録し、購読リンクへリダイレクトする。
// POST /subscribe
func (h *SubscriptionHandler) SubscribeAndRedirect(w http.ResponseWriter, r *http.Request) {
	h.marker.MarkSubscribed(w)
	http.Redirect(w, r, safeRedirectTarget(h.marker.Link()), http.StatusSeeOther)
}

// safeRedirectTarget はhttp/httpsの絶対URLのみを許可し、それ以外はトップページを返す。
func safeRedirectTarget(link string) string {
	u, err := url.Parse(link)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return "/"
	}
	return u.String()
}
