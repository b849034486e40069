package adfeed

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/hitoshi/samkitchen/internal/model"
)

const (
	// MaxAdvertisements は1回の取り込みで返す広告の上限。
	MaxAdvertisements = 10

	defaultTimeout     = 10 * time.Second
	defaultMaxBodySize = 5 * 1024 * 1024
	userAgent          = "SamKitchen/1.0 AdFeed Importer"
)

// SSRFValidator はSSRF検証のインターフェース。
type SSRFValidator interface {
	ValidateURL(rawURL string) error
	NewSafeClient(timeout time.Duration, maxResponseSize int64) *http.Client
}

// Sanitizer は取り込んだ広告を無害化する。
type Sanitizer interface {
	Sanitize(ad model.Advertisement) model.Advertisement
}

// Recorder は取り込み結果を記録する。
type Recorder interface {
	RecordAdImport(count int, err error)
}

// Importer はフィードURL（またはフィードを持つページURL）から広告候補を生成する。
// 結果は保存せず呼び出し元に返す。
type Importer struct {
	ssrfGuard SSRFValidator
	sanitizer Sanitizer
	recorder  Recorder
	logger    *slog.Logger
	timeout   time.Duration
	maxBody   int64
}

// NewImporter はImporterを生成する。recorderはnilでもよい。
func NewImporter(ssrfGuard SSRFValidator, sanitizer Sanitizer, recorder Recorder, logger *slog.Logger) *Importer {
	return &Importer{
		ssrfGuard: ssrfGuard,
		sanitizer: sanitizer,
		recorder:  recorder,
		logger:    logger,
		timeout:   defaultTimeout,
		maxBody:   defaultMaxBodySize,
	}
}

// Import はURLを取得し、ページであればフィードリンクを辿ってから、
// 画像を持つ記事を最大MaxAdvertisements件の広告に変換する。
func (i *Importer) Import(ctx context.Context, rawURL string) ([]model.Advertisement, error) {
	ads, err := i.importAds(ctx, strings.TrimSpace(rawURL))
	if i.recorder != nil {
		i.recorder.RecordAdImport(len(ads), err)
	}
	if err != nil {
		i.logger.Warn("広告フィードの取り込みに失敗しました",
			slog.String("url", rawURL),
			slog.String("error", err.Error()),
		)
		return nil, err
	}
	i.logger.Info("広告フィードを取り込みました",
		slog.String("url", rawURL),
		slog.Int("count", len(ads)),
	)
	return ads, nil
}

func (i *Importer) importAds(ctx context.Context, rawURL string) ([]model.Advertisement, error) {
	if rawURL == "" {
		return nil, model.NewImportFailedError("لم يتم إدخال الرابط")
	}

	contentType, body, err := i.fetch(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	if !IsDirectFeed(contentType, body) && IsHTML(contentType) {
		best := SelectBestFeed(ParseFeedLinksFromHTML(body, rawURL), rawURL)
		if best == nil {
			return nil, model.NewImportFailedError("لم يتم العثور على خلاصة في الصفحة")
		}
		i.logger.Debug("ページからフィードを検出しました",
			slog.String("page_url", rawURL),
			slog.String("feed_url", best.URL),
		)
		if _, body, err = i.fetch(ctx, best.URL); err != nil {
			return nil, err
		}
	}

	parsed, err := gofeed.NewParser().ParseString(string(body))
	if err != nil {
		return nil, model.NewImportFailedError(fmt.Sprintf("تعذر تحليل الخلاصة: %v", err))
	}

	return i.convertItems(parsed.Items), nil
}

// fetch はSSRF検証済みクライアントでURLを取得し、Content-Typeとボディを返す。
func (i *Importer) fetch(ctx context.Context, rawURL string) (string, []byte, error) {
	if err := i.ssrfGuard.ValidateURL(rawURL); err != nil {
		return "", nil, model.NewImportFailedError("الرابط غير مسموح به")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", nil, model.NewImportFailedError(err.Error())
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/xml, text/xml, text/html, */*")

	resp, err := i.ssrfGuard.NewSafeClient(i.timeout, i.maxBody).Do(req)
	if err != nil {
		return "", nil, model.NewImportFailedError(fmt.Sprintf("تعذر جلب الرابط: %v", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", nil, model.NewImportFailedError(fmt.Sprintf("استجابة HTTP غير متوقعة %d", resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, i.maxBody))
	if err != nil {
		return "", nil, model.NewImportFailedError(fmt.Sprintf("تعذر قراءة الاستجابة: %v", err))
	}
	return resp.Header.Get("Content-Type"), body, nil
}

// convertItems は画像・タイトル・リンクが揃う記事のみを広告に変換する。
func (i *Importer) convertItems(items []*gofeed.Item) []model.Advertisement {
	ads := make([]model.Advertisement, 0, MaxAdvertisements)
	for _, item := range items {
		if item == nil {
			continue
		}
		ad := i.sanitizer.Sanitize(model.Advertisement{
			ImageURL: itemImageURL(item),
			Text:     item.Title,
			LinkURL:  item.Link,
		})
		if !ad.Renderable() {
			continue
		}
		ads = append(ads, ad)
		if len(ads) == MaxAdvertisements {
			break
		}
	}
	return ads
}

// itemImageURL は記事の画像URLを item image > 画像のenclosure > media:thumbnail > media:content の順で探す。
func itemImageURL(item *gofeed.Item) string {
	if item.Image != nil && item.Image.URL != "" {
		return item.Image.URL
	}
	for _, enc := range item.Enclosures {
		if enc != nil && enc.URL != "" && strings.HasPrefix(strings.ToLower(enc.Type), "image/") {
			return enc.URL
		}
	}
	media := item.Extensions["media"]
	for _, name := range []string{"thumbnail", "content"} {
		for _, ext := range media[name] {
			if u := ext.Attrs["url"]; u != "" {
				return u
			}
		}
	}
	return ""
}
