package settings

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/hitoshi/samkitchen/internal/gist"
	"github.com/hitoshi/samkitchen/internal/model"
	"github.com/hitoshi/samkitchen/internal/repository"
)

// リモート同期の結果。メトリクスのラベルに使う。
const (
	SyncSkipped = "skipped"
	SyncSuccess = "success"
	SyncFailure = "failure"
)

// ErrNotResolved は起動時の設定解決が完了する前に保存しようとした場合のエラー。
var ErrNotResolved = errors.New("settings: not resolved yet")

// RemoteWriter はリモートドキュメントのファイル内容を置き換える。
// *gist.Client がこれを満たす。
type RemoteWriter interface {
	UpdateFile(ctx context.Context, ref gist.DocumentRef, token string, content []byte) (revision string, rawURL string, err error)
}

// SaveResult は保存の各段階の結果。ローカル保存とリモート同期は独立して報告する。
type SaveResult struct {
	LocalSaved      bool
	LocalError      error
	RemoteAttempted bool
	RemoteSynced    bool
	RemoteError     error
	Revision        string
	Settings        model.Settings
}

// Synchronizer は管理者による保存を処理する。
// 現在の設定に編集内容を重ね、ローカルキャッシュへ保存し、同期先が設定されていれば
// リモートドキュメントを更新して同期先アドレスを新しいリビジョンに固定する。
type Synchronizer struct {
	mu       sync.Mutex
	store    *Store
	cache    repository.CacheRepository
	writer   RemoteWriter
	logger   *slog.Logger
	recorder Recorder
}

// NewSynchronizer はSynchronizerを生成する。writerがnilの場合はリモート同期を行わない。
func NewSynchronizer(store *Store, cache repository.CacheRepository, writer RemoteWriter, logger *slog.Logger, recorder Recorder) *Synchronizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Synchronizer{
		store:    store,
		cache:    cache,
		writer:   writer,
		logger:   logger,
		recorder: recorder,
	}
}

// Save は編集内容を保存する。保存は直列化され、最後の保存が勝つ。
// 新しいパスワードが空白のみの場合は既存のパスワードを維持する。
// リトライは行わない。
func (s *Synchronizer) Save(ctx context.Context, patch model.SettingsPatch) (SaveResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.store.Resolved() {
		return SaveResult{}, ErrNotResolved
	}

	if patch.AdminPassword != nil && strings.TrimSpace(*patch.AdminPassword) == "" {
		patch.AdminPassword = nil
	}

	merged := s.store.Current().Apply(patch)
	s.store.replace(merged)

	var result SaveResult
	if err := s.persist(ctx, merged); err != nil {
		result.LocalError = err
		s.logger.Error("failed to save settings locally", slog.String("error", err.Error()))
	} else {
		result.LocalSaved = true
	}

	if merged.GistURL == "" || merged.GithubToken == "" || s.writer == nil {
		s.record(SyncSkipped)
		result.Settings = merged
		return result, nil
	}

	result.RemoteAttempted = true
	revision, rawURL, err := s.pushRemote(ctx, merged)
	if err != nil {
		result.RemoteError = err
		s.logger.Error("failed to sync settings to remote document",
			slog.String("gist_url", merged.GistURL),
			slog.String("error", err.Error()),
		)
		s.record(SyncFailure)
		result.Settings = merged
		return result, nil
	}

	merged.GistURL = rawURL
	s.store.replace(merged)
	if err := s.persist(ctx, merged); err != nil {
		result.LocalSaved = false
		result.LocalError = err
		s.logger.Error("failed to save pinned revision locally", slog.String("error", err.Error()))
	}

	result.RemoteSynced = true
	result.Revision = revision
	result.Settings = merged
	s.logger.Info("settings synced to remote document", slog.String("revision", revision))
	s.record(SyncSuccess)
	return result, nil
}

// Import は設定ドキュメント（JSON）を検証して保存する。
// 検証で除外したフィールド名も返す。
func (s *Synchronizer) Import(ctx context.Context, data []byte) (SaveResult, []string, error) {
	patch, dropped, err := DecodeDocument(data)
	if err != nil {
		return SaveResult{}, nil, err
	}
	result, err := s.Save(ctx, patch)
	return result, dropped, err
}

func (s *Synchronizer) pushRemote(ctx context.Context, merged model.Settings) (string, string, error) {
	ref, err := gist.ParseRawURL(merged.GistURL)
	if err != nil {
		return "", "", err
	}
	payload, err := RemotePayload(merged)
	if err != nil {
		return "", "", err
	}
	revision, rawURL, err := s.writer.UpdateFile(ctx, ref, merged.GithubToken, payload)
	if err != nil {
		return "", "", fmt.Errorf("settings: remote update: %w", err)
	}
	return revision, rawURL, nil
}

func (s *Synchronizer) persist(ctx context.Context, st model.Settings) error {
	doc, err := EncodeDocument(st)
	if err != nil {
		return err
	}
	return s.cache.Set(ctx, repository.SettingsCacheKey, doc)
}

func (s *Synchronizer) record(outcome string) {
	if s.recorder != nil {
		s.recorder.RecordRemoteSync(outcome)
	}
}
