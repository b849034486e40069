// Package view はサーバー描画ページ（入力フォーム、レシピ表示、管理画面）のテンプレートを提供する。
package view

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strings"

	"github.com/hitoshi/samkitchen/internal/kitchen"
	"github.com/hitoshi/samkitchen/internal/model"
)

//go:embed templates/*.html
var templatesFS embed.FS

//go:embed static/*
var staticFS embed.FS

// ページ名
const (
	PageIndex = "index"
	PageLogin = "login"
	PageAdmin = "admin"
)

var pages = []string{PageIndex, PageLogin, PageAdmin}

// Options は入力フォームの選択肢。
type Options struct {
	Cuisines []string
	Meals    []string
	Dietary  []string
}

// DefaultOptions はモデルに定義された選択肢を返す。
func DefaultOptions() Options {
	return Options{
		Cuisines: model.CuisineTypes,
		Meals:    model.MealTypes,
		Dietary:  model.DietaryOptions,
	}
}

// IndexPage はトップページ（入力フォームと結果）の描画データ。
type IndexPage struct {
	CSRFToken string
	Admin     bool
	Options   Options
	Input     model.FilterInput
	Ads       []model.Advertisement
	Outcome   kitchen.Outcome
}

// LoginPage は管理者ログインページの描画データ。
type LoginPage struct {
	CSRFToken string
	Username  string
	Error     string
}

// SaveNotice は管理画面での保存結果。ローカル保存とリモート同期を別々に表示する。
type SaveNotice struct {
	LocalSaved      bool
	LocalError      string
	RemoteAttempted bool
	RemoteSynced    bool
	RemoteError     string
}

// AdminPage は管理画面の描画データ。
type AdminPage struct {
	CSRFToken string
	Settings  model.Settings
	Notice    *SaveNotice
	Imported  []model.Advertisement
	Error     string
	Dropped   []string
}

// GithubTokenSet はGitHubトークンが保存済みかを返す。トークン自体は画面に出さない。
func (p AdminPage) GithubTokenSet() bool {
	return p.Settings.GithubToken != ""
}

// AdRow は管理画面の広告編集フォームの1行。Indexはフォームフィールドの添字になる。
type AdRow struct {
	Index    int
	Ad       model.Advertisement
	Imported bool
	New      bool
}

// AdRows は既存の広告、取り込んだ広告、新規追加用の空行の順に編集行を返す。
func (p AdminPage) AdRows() []AdRow {
	rows := make([]AdRow, 0, len(p.Settings.Advertisements)+len(p.Imported)+1)
	for _, ad := range p.Settings.Advertisements {
		rows = append(rows, AdRow{Index: len(rows), Ad: ad})
	}
	for _, ad := range p.Imported {
		rows = append(rows, AdRow{Index: len(rows), Ad: ad, Imported: true})
	}
	return append(rows, AdRow{Index: len(rows), New: true})
}

// AdImageFileField は行ごとの画像アップロードのフィールド名を返す。
func AdImageFileField(index int) string {
	return fmt.Sprintf("adImageFile%d", index)
}

// Renderer は埋め込みテンプレートからページを描画する。
type Renderer struct {
	templates map[string]*template.Template
}

var funcs = template.FuncMap{
	"contains": func(list []string, v string) bool {
		for _, s := range list {
			if s == v {
				return true
			}
		}
		return false
	},
	"join": strings.Join,
	"inc":  func(i int) int { return i + 1 },
	// imageURL はサニタイズ済みの画像URL（data URLを含む）をsrc属性に出力する。
	"imageURL": func(s string) template.URL { return template.URL(s) },
}

// NewRenderer は全ページのテンプレートを解析する。
func NewRenderer() (*Renderer, error) {
	r := &Renderer{templates: make(map[string]*template.Template, len(pages))}
	for _, page := range pages {
		t, err := template.New("layout.html").Funcs(funcs).ParseFS(templatesFS, "templates/layout.html", "templates/"+page+".html")
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", page, err)
		}
		r.templates[page] = t
	}
	return r, nil
}

// Render はページを描画してレスポンスに書き込む。
// 途中で失敗した場合に部分的なHTMLを返さないよう、バッファに描画してから書き込む。
func (r *Renderer) Render(w http.ResponseWriter, status int, page string, data any) error {
	t, ok := r.templates[page]
	if !ok {
		return fmt.Errorf("unknown page: %s", page)
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout.html", data); err != nil {
		return fmt.Errorf("failed to render %s: %w", page, err)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}

// StaticHandler は埋め込みの静的ファイルを配信するハンドラーを返す。/static/ 配下にマウントする。
func StaticHandler() http.Handler {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
}
