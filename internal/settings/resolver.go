package settings

import (
	"context"
	"log/slog"

	"github.com/hitoshi/samkitchen/internal/model"
	"github.com/hitoshi/samkitchen/internal/repository"
)

// 解決時に適用されたレイヤー名。
const (
	SourceDefaults = "defaults"
	SourceLocal    = "local"
	SourceRemote   = "remote"
)

// DocumentFetcher はリモート設定ドキュメントを取得する。
// *gist.Client がこれを満たす。
type DocumentFetcher interface {
	FetchDocument(ctx context.Context, rawURL string) ([]byte, error)
}

// Recorder は設定解決・同期のメトリクス記録先。
type Recorder interface {
	RecordSettingsResolution(source string)
	RecordRemoteSync(outcome string)
}

// Resolution は1回の解決結果。Sourcesは適用されたレイヤーを適用順に並べたもの。
type Resolution struct {
	Settings model.Settings
	Sources  []string
}

// Resolver は既定値、ローカルキャッシュ、リモートドキュメントの順に設定を重ね合わせる。
type Resolver struct {
	store    *Store
	cache    repository.CacheRepository
	fetcher  DocumentFetcher
	logger   *slog.Logger
	recorder Recorder
}

// NewResolver はResolverを生成する。fetcherがnilの場合はリモートの取得を行わない。
func NewResolver(store *Store, cache repository.CacheRepository, fetcher DocumentFetcher, logger *slog.Logger, recorder Recorder) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		store:    store,
		cache:    cache,
		fetcher:  fetcher,
		logger:   logger,
		recorder: recorder,
	}
}

// Resolve は設定を解決してStoreに反映し、結果を返す。
// 失敗はすべてログに記録して読み飛ばすため、エラーを返さない。
func (r *Resolver) Resolve(ctx context.Context) Resolution {
	current := Defaults()
	res := Resolution{Sources: []string{SourceDefaults}}

	if patch, ok := r.loadLocal(ctx); ok {
		current = current.Apply(patch)
		res.Sources = append(res.Sources, SourceLocal)
	}

	if current.GistURL != "" && r.fetcher != nil {
		if patch, ok := r.loadRemote(ctx, current.GistURL); ok {
			current = current.Apply(patch)
			res.Sources = append(res.Sources, SourceRemote)
		}
	}

	if doc, err := EncodeDocument(current); err != nil {
		r.logger.Warn("failed to encode settings for local cache", slog.String("error", err.Error()))
	} else if err := r.cache.Set(ctx, repository.SettingsCacheKey, doc); err != nil {
		r.logger.Warn("failed to persist settings to local cache", slog.String("error", err.Error()))
	}

	r.store.markResolved(current)
	res.Settings = current

	r.logger.Info("settings resolved", slog.Any("sources", res.Sources))
	if r.recorder != nil {
		r.recorder.RecordSettingsResolution(res.Sources[len(res.Sources)-1])
	}
	return res
}

func (r *Resolver) loadLocal(ctx context.Context) (model.SettingsPatch, bool) {
	raw, found, err := r.cache.Get(ctx, repository.SettingsCacheKey)
	if err != nil {
		r.logger.Warn("failed to read local settings cache", slog.String("error", err.Error()))
		return model.SettingsPatch{}, false
	}
	if !found {
		return model.SettingsPatch{}, false
	}

	patch, dropped, err := DecodeDocument([]byte(raw))
	if err != nil {
		r.logger.Warn("malformed local settings cache, using defaults", slog.String("error", err.Error()))
		return model.SettingsPatch{}, false
	}
	if len(dropped) > 0 {
		r.logger.Warn("dropped fields from local settings cache", slog.Any("fields", dropped))
	}
	return patch, true
}

func (r *Resolver) loadRemote(ctx context.Context, rawURL string) (model.SettingsPatch, bool) {
	body, err := r.fetcher.FetchDocument(ctx, rawURL)
	if err != nil {
		r.logger.Warn("failed to fetch remote settings",
			slog.String("url", rawURL),
			slog.String("error", err.Error()),
		)
		return model.SettingsPatch{}, false
	}

	patch, dropped, err := DecodeDocument(body)
	if err != nil {
		r.logger.Warn("malformed remote settings document",
			slog.String("url", rawURL),
			slog.String("error", err.Error()),
		)
		return model.SettingsPatch{}, false
	}

	// リモートドキュメントは自身の所在と書き込み用トークンを上書きできない
	if patch.GistURL != nil {
		patch.GistURL = nil
		dropped = append(dropped, "gistUrl")
	}
	if patch.GithubToken != nil {
		patch.GithubToken = nil
		dropped = append(dropped, "githubToken")
	}
	if len(dropped) > 0 {
		r.logger.Warn("dropped fields from remote settings", slog.Any("fields", dropped))
	}
	return patch, true
}
