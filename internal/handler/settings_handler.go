package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/hitoshi/samkitchen/internal/gist"
	"github.com/hitoshi/samkitchen/internal/middleware"
	"github.com/hitoshi/samkitchen/internal/model"
)

// DocumentSource はリモート設定ドキュメントの最新リビジョン解決と取得を行う。*gist.Clientが実装する。
type DocumentSource interface {
	LatestRawURL(ctx context.Context, id, file, token string) (string, error)
	FetchDocument(ctx context.Context, rawURL string) ([]byte, error)
}

// SettingsReader は現在の設定を返す。settings.Storeが実装する。
type SettingsReader interface {
	Current() model.Settings
}

// AdSanitizer は表示前の広告を無害化する。security.AdSanitizerが実装する。
type AdSanitizer interface {
	SanitizeAll(ads []model.Advertisement) []model.Advertisement
}

// SettingsEndpointConfig は/api/get-settingsの取得元。
type SettingsEndpointConfig struct {
	GistID string
	File   string
	Token  string
}

// SettingsHandler は設定の取得エンドポイントを提供する。
type SettingsHandler struct {
	source    DocumentSource
	config    SettingsEndpointConfig
	settings  SettingsReader
	sanitizer AdSanitizer
	logger    *slog.Logger
}

// NewSettingsHandler はSettingsHandlerを生成する。
func NewSettingsHandler(source DocumentSource, config SettingsEndpointConfig, settings SettingsReader, sanitizer AdSanitizer, logger *slog.Logger) *SettingsHandler {
	return &SettingsHandler{
		source:    source,
		config:    config,
		settings:  settings,
		sanitizer: sanitizer,
		logger:    logger,
	}
}

type detailsBody struct {
	Details string `json:"details"`
}

// GetSettings は設定ドキュメントの最新リビジョンを取得して返す。
// GET /api/get-settings
// 中間キャッシュを避けるため、メタデータAPIでリビジョン固定のURLを解決してから本文を取得する。
func (h *SettingsHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	setNoStore(w)

	if h.config.GistID == "" {
		h.logger.Error("server configuration error: SETTINGS_GIST_ID is not set")
		middleware.WriteJSON(w, http.StatusInternalServerError, detailsBody{
			Details: "The server is not configured correctly. The SETTINGS_GIST_ID is missing.",
		})
		return
	}

	rawURL, err := h.source.LatestRawURL(r.Context(), h.config.GistID, h.config.File, h.config.Token)
	if err != nil {
		h.logger.Error("failed to resolve latest settings revision", slog.String("error", err.Error()))
		middleware.WriteJSON(w, http.StatusBadGateway, detailsBody{
			Details: "Failed to resolve the latest settings revision: " + upstreamReason(err),
		})
		return
	}

	body, err := h.source.FetchDocument(r.Context(), rawURL)
	if err != nil {
		h.logger.Error("failed to fetch settings document",
			slog.String("url", rawURL),
			slog.String("error", err.Error()),
		)
		middleware.WriteJSON(w, http.StatusBadGateway, detailsBody{
			Details: "Failed to retrieve settings from the source: " + upstreamReason(err),
		})
		return
	}

	var compacted bytes.Buffer
	if err := json.Compact(&compacted, body); err != nil {
		h.logger.Error("settings document is not valid JSON", slog.String("error", err.Error()))
		middleware.WriteJSON(w, http.StatusInternalServerError, detailsBody{
			Details: "An internal error occurred: " + err.Error(),
		})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	compacted.WriteTo(w)
}

// publicSettings は一般の訪問者に公開する設定。
type publicSettings struct {
	SubscriptionMessage     string                `json:"subscriptionMessage"`
	SubscriptionChannelLink string                `json:"subscriptionChannelLink"`
	Advertisements          []model.Advertisement `json:"advertisements"`
}

// PublicSettings は解決済み設定のうち公開してよい部分を返す。
// GET /api/settings
// 広告は無害化したうえで表示可能なものだけを返す。
func (h *SettingsHandler) PublicSettings(w http.ResponseWriter, r *http.Request) {
	current := h.settings.Current()
	setNoStore(w)
	middleware.WriteJSON(w, http.StatusOK, publicSettings{
		SubscriptionMessage:     current.SubscriptionMessage,
		SubscriptionChannelLink: current.SubscriptionChannelLink,
		Advertisements:          renderableAds(h.sanitizer, current.Advertisements),
	})
}

// renderableAds は無害化後に3項目が揃っている広告を元の順序で返す。
func renderableAds(sanitizer AdSanitizer, ads []model.Advertisement) []model.Advertisement {
	s := model.Settings{Advertisements: sanitizer.SanitizeAll(ads)}
	return s.RenderableAdvertisements()
}

func setNoStore(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Expires", "0")
}

// upstreamReason は上流エラーの理由を短い文字列にする。
func upstreamReason(err error) string {
	var statusErr *gist.StatusError
	if errors.As(err, &statusErr) {
		return fmt.Sprintf("%d %s", statusErr.StatusCode, http.StatusText(statusErr.StatusCode))
	}
	return err.Error()
}
