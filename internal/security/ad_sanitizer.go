package security

import (
	"html"
	"net/url"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"github.com/hitoshi/samkitchen/internal/model"
)

// dataImagePattern は管理画面からアップロードされた画像のdata URLにマッチする。
var dataImagePattern = regexp.MustCompile(`^data:image/(png|jpeg|jpg|gif|webp);base64,[A-Za-z0-9+/=\s]+$`)

// AdSanitizer は広告と誘導メッセージの内容を表示前・保存前に無害化する。
// テキストはbluemondayのStrictPolicyで全タグを除去し、
// リンクはhttp/httpsの絶対URLまたは"#"で始まるフラグメントのみ、
// 画像はhttpsのURLまたは画像のdata URLのみを許可する。許可されない値は空にする。
type AdSanitizer struct {
	text *bluemonday.Policy
}

// NewAdSanitizer はAdSanitizerを生成する。
func NewAdSanitizer() *AdSanitizer {
	return &AdSanitizer{text: bluemonday.StrictPolicy()}
}

// SanitizeText は全てのHTMLタグを除去したプレーンテキストを返す。
// 出力時にテンプレート側でエスケープするため、ここではエンティティを戻す。
func (s *AdSanitizer) SanitizeText(text string) string {
	return strings.TrimSpace(html.UnescapeString(s.text.Sanitize(text)))
}

// Sanitize は広告1件を無害化する。
func (s *AdSanitizer) Sanitize(ad model.Advertisement) model.Advertisement {
	return model.Advertisement{
		ImageURL: sanitizeImageURL(ad.ImageURL),
		Text:     s.SanitizeText(ad.Text),
		LinkURL:  sanitizeLinkURL(ad.LinkURL),
	}
}

// SanitizeAll は広告リストを順序を保って無害化する。
func (s *AdSanitizer) SanitizeAll(ads []model.Advertisement) []model.Advertisement {
	out := make([]model.Advertisement, len(ads))
	for i, ad := range ads {
		out[i] = s.Sanitize(ad)
	}
	return out
}

func sanitizeLinkURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "#") {
		return raw
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return ""
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return u.String()
	}
	return ""
}

func sanitizeImageURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "data:") {
		if dataImagePattern.MatchString(raw) {
			return raw
		}
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || !strings.EqualFold(u.Scheme, "https") {
		return ""
	}
	return u.String()
}
