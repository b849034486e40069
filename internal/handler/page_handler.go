package handler

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/hitoshi/samkitchen/internal/auth"
	"github.com/hitoshi/samkitchen/internal/kitchen"
	"github.com/hitoshi/samkitchen/internal/middleware"
	"github.com/hitoshi/samkitchen/internal/model"
	"github.com/hitoshi/samkitchen/internal/settings"
	"github.com/hitoshi/samkitchen/internal/view"
)

const (
	// maxPublicFormSize は公開フォーム（生成・購読・ログイン）のボディサイズ上限。
	maxPublicFormSize = 64 << 10
	// maxAdminFormSize は管理画面フォーム（画像アップロードを含む）のサイズ上限。
	maxAdminFormSize = 10 << 20
	// maxAdImageSize はアップロードする広告画像1枚のサイズ上限。
	maxAdImageSize = 2 << 20
)

// internalErrorMessage はログイン処理の内部エラー時の表示。
const internalErrorMessage = "حدث خطأ داخلي."

// settingsUnavailableMessage は起動時の設定解決が終わる前に保存しようとした場合の表示。
const settingsUnavailableMessage = "لم يتم تحميل الإعدادات بعد. يرجى المحاولة بعد قليل."

// PageRenderer はHTMLページを描画する。view.Rendererが実装する。
type PageRenderer interface {
	Render(w http.ResponseWriter, status int, page string, data any) error
}

// PageHandler はブラウザ向けのHTMLページを提供する。
type PageHandler struct {
	renderer  PageRenderer
	submitter Submitter
	auth      AdminAuthenticator
	settings  SettingsReader
	saver     SettingsSaver
	importer  AdImporter
	sanitizer AdminAdSanitizer
	config    AdminHandlerConfig
	logger    *slog.Logger
}

// PageHandlerDeps はNewPageHandlerに必要な依存関係。
type PageHandlerDeps struct {
	Renderer  PageRenderer
	Submitter Submitter
	Auth      AdminAuthenticator
	Settings  SettingsReader
	Saver     SettingsSaver
	Importer  AdImporter
	Sanitizer AdminAdSanitizer
	Config    AdminHandlerConfig
	Logger    *slog.Logger
}

// NewPageHandler はPageHandlerを生成する。
func NewPageHandler(deps PageHandlerDeps) *PageHandler {
	return &PageHandler{
		renderer:  deps.Renderer,
		submitter: deps.Submitter,
		auth:      deps.Auth,
		settings:  deps.Settings,
		saver:     deps.Saver,
		importer:  deps.Importer,
		sanitizer: deps.Sanitizer,
		config:    deps.Config,
		logger:    deps.Logger,
	}
}

// Index は入力フォームを表示する。
// GET /
func (h *PageHandler) Index(w http.ResponseWriter, r *http.Request) {
	h.renderIndex(w, r, model.NewFilterInput(), kitchen.Outcome{})
}

// Generate はフォーム送信を受けてレシピを生成し、結果をフォームと同じページに表示する。
// POST /
func (h *PageHandler) Generate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError(err.Error()))
		return
	}

	in := model.FilterInput{
		Ingredients:    r.PostForm.Get("ingredients"),
		Cuisine:        r.PostForm.Get("cuisine"),
		MealType:       r.PostForm.Get("mealType"),
		DietaryOptions: r.PostForm["dietaryOptions"],
	}
	out := h.submitter.Submit(r.Context(), in, visitorFrom(r))
	h.renderIndex(w, r, in, out)
}

func (h *PageHandler) renderIndex(w http.ResponseWriter, r *http.Request, in model.FilterInput, out kitchen.Outcome) {
	if in.DietaryOptions == nil {
		in.DietaryOptions = []string{}
	}
	data := view.IndexPage{
		CSRFToken: middleware.CSRFToken(r.Context()),
		Admin:     middleware.IsAdmin(r.Context()),
		Options:   view.DefaultOptions(),
		Input:     in,
		Ads:       renderableAds(h.sanitizer, h.settings.Current().Advertisements),
		Outcome:   out,
	}
	h.render(w, http.StatusOK, view.PageIndex, data)
}

// LoginPage はログインフォームを表示する。ログイン済みの場合は管理画面へ移動する。
// GET /admin/login
func (h *PageHandler) LoginPage(w http.ResponseWriter, r *http.Request) {
	if middleware.IsAdmin(r.Context()) {
		http.Redirect(w, r, "/admin", http.StatusSeeOther)
		return
	}
	h.render(w, http.StatusOK, view.PageLogin, view.LoginPage{CSRFToken: middleware.CSRFToken(r.Context())})
}

// Login はフォームの資格情報でログインする。
// POST /admin/login
func (h *PageHandler) Login(w http.ResponseWriter, r *http.Request) {
	username := r.PostFormValue("username")
	password := r.PostFormValue("password")

	session, err := h.auth.Login(r.Context(), username, password)
	if err != nil {
		status := http.StatusUnauthorized
		message := model.InvalidCredentialsMessage
		if !errors.Is(err, auth.ErrInvalidCredentials) {
			h.logger.Error("admin login failed", slog.String("error", err.Error()))
			status = http.StatusInternalServerError
			message = internalErrorMessage
		}
		h.render(w, status, view.PageLogin, view.LoginPage{
			CSRFToken: middleware.CSRFToken(r.Context()),
			Username:  username,
			Error:     message,
		})
		return
	}

	setAdminSessionCookie(w, h.config, session.ID)
	http.Redirect(w, r, "/admin", http.StatusSeeOther)
}

// Logout はセッションを破棄してトップページへ戻る。
// POST /admin/logout
func (h *PageHandler) Logout(w http.ResponseWriter, r *http.Request) {
	logoutSession(r, h.auth, h.logger)
	clearAdminSessionCookie(w, h.config)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// RequireAdminPage は管理者でないリクエストをログインページへリダイレクトするミドルウェア。
func RequireAdminPage(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !middleware.IsAdmin(r.Context()) {
			http.Redirect(w, r, "/admin/login", http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Admin は設定編集画面を表示する。
// GET /admin
func (h *PageHandler) Admin(w http.ResponseWriter, r *http.Request) {
	h.renderAdmin(w, r, http.StatusOK, view.AdminPage{})
}

// SaveSettings は設定フォームを保存する。
// POST /admin
func (h *PageHandler) SaveSettings(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxAdminFormSize); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		h.renderAdmin(w, r, http.StatusBadRequest, view.AdminPage{Error: err.Error()})
		return
	}

	ads, err := adsFromForm(r)
	if err != nil {
		h.renderAdmin(w, r, http.StatusBadRequest, view.AdminPage{Error: err.Error()})
		return
	}
	ads = h.sanitizer.SanitizeAll(ads)

	patch := model.SettingsPatch{
		SubscriptionMessage:     formString(r, "subscriptionMessage"),
		SubscriptionChannelLink: formString(r, "subscriptionChannelLink"),
		Advertisements:          &ads,
		AdminUsername:           formString(r, "adminUsername"),
		AdminPassword:           formString(r, "adminPassword"),
		GistURL:                 formString(r, "gistUrl"),
		GithubToken:             formSecret(r, "githubToken", "githubTokenClear"),
	}

	result, err := h.saver.Save(r.Context(), patch)
	if err != nil {
		h.renderSaveError(w, r, err)
		return
	}
	h.renderAdmin(w, r, http.StatusOK, view.AdminPage{Notice: toSaveNotice(result)})
}

// ImportAds はフィードから取り込んだ広告を編集フォームに追加して表示する。保存は行わない。
// POST /admin/ads/import
func (h *PageHandler) ImportAds(w http.ResponseWriter, r *http.Request) {
	ads, err := h.importer.Import(r.Context(), r.PostFormValue("feedUrl"))
	if err != nil {
		h.renderAdmin(w, r, http.StatusUnprocessableEntity, view.AdminPage{Error: importError(err).Message})
		return
	}
	h.renderAdmin(w, r, http.StatusOK, view.AdminPage{Imported: ads})
}

// ImportSettings はアップロードされた設定ファイルを取り込んで保存する。
// POST /admin/settings/import
func (h *PageHandler) ImportSettings(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxAdminFormSize); err != nil {
		h.renderAdmin(w, r, http.StatusBadRequest, view.AdminPage{Error: err.Error()})
		return
	}
	file, _, err := r.FormFile("settingsFile")
	if err != nil {
		h.renderAdmin(w, r, http.StatusBadRequest, view.AdminPage{Error: err.Error()})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxImportFileSize))
	if err != nil {
		h.renderAdmin(w, r, http.StatusBadRequest, view.AdminPage{Error: err.Error()})
		return
	}

	result, dropped, err := h.saver.Import(r.Context(), data)
	if err != nil {
		h.renderSaveError(w, r, err)
		return
	}
	h.renderAdmin(w, r, http.StatusOK, view.AdminPage{Notice: toSaveNotice(result), Dropped: dropped})
}

func (h *PageHandler) renderSaveError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, settings.ErrNotResolved) {
		h.renderAdmin(w, r, http.StatusServiceUnavailable, view.AdminPage{Error: settingsUnavailableMessage})
		return
	}
	h.logger.Warn("rejected settings document", slog.String("error", err.Error()))
	h.renderAdmin(w, r, http.StatusBadRequest, view.AdminPage{Error: err.Error()})
}

func (h *PageHandler) renderAdmin(w http.ResponseWriter, r *http.Request, status int, page view.AdminPage) {
	page.CSRFToken = middleware.CSRFToken(r.Context())
	page.Settings = h.settings.Current()
	h.render(w, status, view.PageAdmin, page)
}

func (h *PageHandler) render(w http.ResponseWriter, status int, page string, data any) {
	if err := h.renderer.Render(w, status, page, data); err != nil {
		h.logger.Error("failed to render page",
			slog.String("page", page),
			slog.String("error", err.Error()),
		)
		middleware.WriteInternalServerError(w)
	}
}

func toSaveNotice(result settings.SaveResult) *view.SaveNotice {
	notice := &view.SaveNotice{
		LocalSaved:      result.LocalSaved,
		RemoteAttempted: result.RemoteAttempted,
		RemoteSynced:    result.RemoteSynced,
	}
	if result.LocalError != nil {
		notice.LocalError = result.LocalError.Error()
	}
	if result.RemoteError != nil {
		notice.RemoteError = result.RemoteError.Error()
	}
	return notice
}

// formString はフォームに存在するフィールドのみポインタで返す。
func formString(r *http.Request, key string) *string {
	values, ok := r.PostForm[key]
	if !ok || len(values) == 0 {
		return nil
	}
	v := strings.TrimSpace(values[0])
	return &v
}

// formSecret は秘密値のフィールドを読む。空欄は既存値の維持としてnilを返し、
// clearKeyがチェックされていれば空文字で上書きする。
func formSecret(r *http.Request, key, clearKey string) *string {
	if r.PostFormValue(clearKey) != "" {
		empty := ""
		return &empty
	}
	v := formString(r, key)
	if v == nil || *v == "" {
		return nil
	}
	return v
}

// adsFromForm は広告編集フォームの各行から広告リストを組み立てる。
// 削除指定の行と3項目すべて空の行は除外する。画像ファイルがあればURLより優先する。
func adsFromForm(r *http.Request) ([]model.Advertisement, error) {
	imageURLs := r.PostForm["adImageUrl"]
	texts := r.PostForm["adText"]
	links := r.PostForm["adLinkUrl"]

	deleted := make(map[int]bool)
	for _, v := range r.PostForm["adDelete"] {
		if i, err := strconv.Atoi(v); err == nil {
			deleted[i] = true
		}
	}

	rows := max(len(imageURLs), len(texts), len(links))
	ads := make([]model.Advertisement, 0, rows)
	for i := 0; i < rows; i++ {
		if deleted[i] {
			continue
		}
		ad := model.Advertisement{
			ImageURL: strings.TrimSpace(valueAt(imageURLs, i)),
			Text:     strings.TrimSpace(valueAt(texts, i)),
			LinkURL:  strings.TrimSpace(valueAt(links, i)),
		}

		dataURL, err := uploadedImage(r, view.AdImageFileField(i))
		if err != nil {
			return nil, fmt.Errorf("ad %d: %w", i+1, err)
		}
		if dataURL != "" {
			ad.ImageURL = dataURL
		}

		if ad.ImageURL == "" && ad.Text == "" && ad.LinkURL == "" {
			continue
		}
		ads = append(ads, ad)
	}
	return ads, nil
}

func valueAt(values []string, i int) string {
	if i < len(values) {
		return values[i]
	}
	return ""
}

// uploadedImage は行の画像ファイルをdata URLに変換する。ファイルがなければ空文字を返す。
func uploadedImage(r *http.Request, field string) (string, error) {
	if r.MultipartForm == nil {
		return "", nil
	}
	headers := r.MultipartForm.File[field]
	if len(headers) == 0 || headers[0].Size == 0 {
		return "", nil
	}
	return imageDataURL(headers[0])
}

func imageDataURL(header *multipart.FileHeader) (string, error) {
	if header.Size > maxAdImageSize {
		return "", fmt.Errorf("image %q exceeds %d bytes", header.Filename, maxAdImageSize)
	}
	f, err := header.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxAdImageSize+1))
	if err != nil {
		return "", fmt.Errorf("failed to read image: %w", err)
	}
	if len(data) > maxAdImageSize {
		return "", fmt.Errorf("image %q exceeds %d bytes", header.Filename, maxAdImageSize)
	}

	contentType := http.DetectContentType(data)
	if !strings.HasPrefix(contentType, "image/") {
		return "", fmt.Errorf("file %q is not an image", header.Filename)
	}
	return "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}
