package settings

import (
	"sync"

	"github.com/hitoshi/samkitchen/internal/model"
)

// Store はプロセス全体で共有する現在の設定を保持する。
// 書き換えはResolverとSynchronizerのみが行い、読み出しは常にコピーを返す。
type Store struct {
	mu       sync.RWMutex
	current  model.Settings
	resolved bool
}

// NewStore は既定設定で初期化したStoreを生成する。
func NewStore() *Store {
	return &Store{current: Defaults()}
}

// Current は現在の設定のコピーを返す。
func (s *Store) Current() model.Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.Clone()
}

// Resolved は起動時の解決が（成功・フォールバックを問わず）完了しているかを返す。
// 管理者による編集はこれがtrueになるまで受け付けない。
func (s *Store) Resolved() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.resolved
}

func (s *Store) replace(next model.Settings) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = next.Clone()
}

func (s *Store) markResolved(next model.Settings) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = next.Clone()
	s.resolved = true
}
