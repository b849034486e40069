package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/hitoshi/samkitchen/internal/auth"
	"github.com/hitoshi/samkitchen/internal/middleware"
	"github.com/hitoshi/samkitchen/internal/model"
	"github.com/hitoshi/samkitchen/internal/settings"
)

// maxImportFileSize は設定ファイルのインポートで受け付けるサイズの上限。
const maxImportFileSize = 1 << 20

// AdminAuthenticator は管理者のログインとログアウトを行う。auth.Serviceが実装する。
type AdminAuthenticator interface {
	Login(ctx context.Context, username, password string) (*model.Session, error)
	Logout(ctx context.Context, sessionID string) error
}

// SettingsSaver は管理者による設定の保存とインポートを行う。settings.Synchronizerが実装する。
type SettingsSaver interface {
	Save(ctx context.Context, patch model.SettingsPatch) (settings.SaveResult, error)
	Import(ctx context.Context, data []byte) (settings.SaveResult, []string, error)
}

// AdImporter はRSS/Atomフィードから広告を取り込む。adfeed.Importerが実装する。
type AdImporter interface {
	Import(ctx context.Context, rawURL string) ([]model.Advertisement, error)
}

// AdminAdSanitizer は保存前の広告を無害化する。security.AdSanitizerが実装する。
type AdminAdSanitizer interface {
	Sanitize(ad model.Advertisement) model.Advertisement
	SanitizeAll(ads []model.Advertisement) []model.Advertisement
}

// AdminHandlerConfig は管理者セッションCookieの属性。
type AdminHandlerConfig struct {
	CookieDomain  string
	CookieSecure  bool
	SessionMaxAge int // セッションCookieの有効期間（秒）
}

// AdminHandler は管理者向けのJSON APIを提供する。
type AdminHandler struct {
	auth      AdminAuthenticator
	settings  SettingsReader
	saver     SettingsSaver
	importer  AdImporter
	sanitizer AdminAdSanitizer
	config    AdminHandlerConfig
	logger    *slog.Logger
}

// NewAdminHandler はAdminHandlerを生成する。
func NewAdminHandler(
	authenticator AdminAuthenticator,
	settings SettingsReader,
	saver SettingsSaver,
	importer AdImporter,
	sanitizer AdminAdSanitizer,
	config AdminHandlerConfig,
	logger *slog.Logger,
) *AdminHandler {
	return &AdminHandler{
		auth:      authenticator,
		settings:  settings,
		saver:     saver,
		importer:  importer,
		sanitizer: sanitizer,
		config:    config,
		logger:    logger,
	}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Username string `json:"username"`
}

// Login は管理者としてログインし、セッションCookieを発行する。
// POST /api/admin/login
func (h *AdminHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxRequestBodySize)).Decode(&req); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError(err.Error()))
		return
	}

	session, err := h.auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewInvalidCredentialsError())
			return
		}
		h.logger.Error("admin login failed", slog.String("error", err.Error()))
		middleware.WriteInternalServerError(w)
		return
	}

	setAdminSessionCookie(w, h.config, session.ID)
	middleware.WriteJSON(w, http.StatusOK, loginResponse{Username: session.Username})
}

// Logout は管理者セッションを破棄する。
// POST /api/admin/logout
func (h *AdminHandler) Logout(w http.ResponseWriter, r *http.Request) {
	logoutSession(r, h.auth, h.logger)
	clearAdminSessionCookie(w, h.config)
	w.WriteHeader(http.StatusNoContent)
}

// adminSettingsResponse は管理画面向けの設定表現。パスワードは含めない。
type adminSettingsResponse struct {
	SubscriptionMessage     string                `json:"subscriptionMessage"`
	SubscriptionChannelLink string                `json:"subscriptionChannelLink"`
	Advertisements          []model.Advertisement `json:"advertisements"`
	AdminUsername           string                `json:"adminUsername"`
	GistURL                 string                `json:"gistUrl"`
	GithubTokenSet          bool                  `json:"githubTokenSet"`
}

func toAdminSettingsResponse(s model.Settings) adminSettingsResponse {
	ads := s.Advertisements
	if ads == nil {
		ads = []model.Advertisement{}
	}
	return adminSettingsResponse{
		SubscriptionMessage:     s.SubscriptionMessage,
		SubscriptionChannelLink: s.SubscriptionChannelLink,
		Advertisements:          ads,
		AdminUsername:           s.AdminUsername,
		GistURL:                 s.GistURL,
		GithubTokenSet:          s.GithubToken != "",
	}
}

// saveResponse は保存結果。ローカル保存とリモート同期を別々に報告する。
type saveResponse struct {
	LocalSaved      bool                  `json:"localSaved"`
	LocalError      string                `json:"localError,omitempty"`
	RemoteAttempted bool                  `json:"remoteAttempted"`
	RemoteSynced    bool                  `json:"remoteSynced"`
	RemoteError     string                `json:"remoteError,omitempty"`
	Revision        string                `json:"revision,omitempty"`
	Dropped         []string              `json:"dropped,omitempty"`
	Settings        adminSettingsResponse `json:"settings"`
}

func toSaveResponse(result settings.SaveResult, dropped []string) saveResponse {
	resp := saveResponse{
		LocalSaved:      result.LocalSaved,
		RemoteAttempted: result.RemoteAttempted,
		RemoteSynced:    result.RemoteSynced,
		Revision:        result.Revision,
		Dropped:         dropped,
		Settings:        toAdminSettingsResponse(result.Settings),
	}
	if result.LocalError != nil {
		resp.LocalError = result.LocalError.Error()
	}
	if result.RemoteError != nil {
		resp.RemoteError = result.RemoteError.Error()
	}
	return resp
}

// GetSettings は現在の設定を返す。
// GET /api/admin/settings
func (h *AdminHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	setNoStore(w)
	middleware.WriteJSON(w, http.StatusOK, toAdminSettingsResponse(h.settings.Current()))
}

// UpdateSettings は設定を部分更新する。リクエストに含まれるトップレベルフィールドのみ上書きする。
// PUT /api/admin/settings
func (h *AdminHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var patch model.SettingsPatch
	if err := json.NewDecoder(io.LimitReader(r.Body, maxRequestBodySize)).Decode(&patch); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError(err.Error()))
		return
	}
	if patch.IsEmpty() {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("لا توجد حقول لتحديثها"))
		return
	}
	if patch.Advertisements != nil {
		ads := h.sanitizer.SanitizeAll(*patch.Advertisements)
		patch.Advertisements = &ads
	}

	result, err := h.saver.Save(r.Context(), patch)
	if err != nil {
		h.writeSaveError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, toSaveResponse(result, nil))
}

// ImportSettings は設定ドキュメント（JSON）をリクエストボディから取り込んで保存する。
// POST /api/admin/settings/import
func (h *AdminHandler) ImportSettings(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxImportFileSize))
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError(err.Error()))
		return
	}

	result, dropped, err := h.saver.Import(r.Context(), data)
	if err != nil {
		h.writeSaveError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, toSaveResponse(result, dropped))
}

func (h *AdminHandler) writeSaveError(w http.ResponseWriter, err error) {
	if errors.Is(err, settings.ErrNotResolved) {
		middleware.WriteErrorResponse(w, http.StatusServiceUnavailable, model.NewSettingsUnavailableError())
		return
	}
	h.logger.Warn("rejected settings document", slog.String("error", err.Error()))
	middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError(err.Error()))
}

type importAdsRequest struct {
	FeedURL string `json:"feedUrl"`
}

type importAdsResponse struct {
	Advertisements []model.Advertisement `json:"advertisements"`
}

// ImportAds はフィードから広告候補を取り込んで返す。保存は行わない。
// POST /api/admin/ads/import
func (h *AdminHandler) ImportAds(w http.ResponseWriter, r *http.Request) {
	var req importAdsRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxRequestBodySize)).Decode(&req); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError(err.Error()))
		return
	}

	ads, err := h.importer.Import(r.Context(), req.FeedURL)
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnprocessableEntity, importError(err))
		return
	}
	if ads == nil {
		ads = []model.Advertisement{}
	}
	middleware.WriteJSON(w, http.StatusOK, importAdsResponse{Advertisements: ads})
}

// importError は取り込みエラーをAPIErrorに変換する。
func importError(err error) *model.APIError {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return model.NewImportFailedError(err.Error())
}

func setAdminSessionCookie(w http.ResponseWriter, config AdminHandlerConfig, sessionID string) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.AdminSessionCookieName,
		Value:    sessionID,
		Path:     "/",
		Domain:   config.CookieDomain,
		MaxAge:   config.SessionMaxAge,
		HttpOnly: true,
		Secure:   config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func clearAdminSessionCookie(w http.ResponseWriter, config AdminHandlerConfig) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.AdminSessionCookieName,
		Value:    "",
		Path:     "/",
		Domain:   config.CookieDomain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// logoutSession はCookieのセッションを破棄する。失敗してもCookieは消すためログのみ残す。
func logoutSession(r *http.Request, authenticator AdminAuthenticator, logger *slog.Logger) {
	cookie, err := r.Cookie(middleware.AdminSessionCookieName)
	if err != nil || cookie.Value == "" {
		return
	}
	if err := authenticator.Logout(r.Context(), cookie.Value); err != nil {
		logger.Error("failed to delete admin session", slog.String("error", err.Error()))
	}
}
