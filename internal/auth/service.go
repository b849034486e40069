// Package auth は単一の共有管理者資格情報によるログインと、管理者セッションの管理を提供する。
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/samkitchen/internal/model"
	"github.com/hitoshi/samkitchen/internal/repository"
)

// ErrInvalidCredentials はユーザー名またはパスワードが一致しない場合のエラー。
var ErrInvalidCredentials = errors.New("auth: invalid credentials")

// SettingsSource は現在の設定を返す。*settings.Store がこれを満たす。
type SettingsSource interface {
	Current() model.Settings
}

// Service は管理者認証のビジネスロジックを提供する。
// 資格情報は現在解決されている設定と平文で比較する（ハッシュ化、ロックアウト、期限切れはない）。
type Service struct {
	settings    SettingsSource
	sessionRepo repository.SessionRepository
	logger      *slog.Logger
	now         func() time.Time
}

// NewService はServiceを生成する。
func NewService(settings SettingsSource, sessionRepo repository.SessionRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		settings:    settings,
		sessionRepo: sessionRepo,
		logger:      logger,
		now:         time.Now,
	}
}

// Login はユーザー名とパスワードが現在の設定と一致する場合にセッションを発行する。
// 一致しない場合はErrInvalidCredentialsを返し、状態は変わらない。
func (s *Service) Login(ctx context.Context, username, password string) (*model.Session, error) {
	current := s.settings.Current()
	if username != current.AdminUsername || password != current.AdminPassword {
		s.logger.Warn("admin login failed", slog.String("username", username))
		return nil, ErrInvalidCredentials
	}

	session := &model.Session{
		ID:        uuid.NewString(),
		Username:  username,
		CreatedAt: s.now(),
	}
	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	s.logger.Info("admin logged in", slog.String("username", username))
	return session, nil
}

// Logout はセッションを破棄する。
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("session ID is required")
	}

	if err := s.sessionRepo.DeleteByID(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	s.logger.Info("admin logged out")
	return nil
}

// CurrentSession はセッションIDに対応する管理者セッションを返す。
// 見つからない場合はnilを返す。
func (s *Service) CurrentSession(ctx context.Context, sessionID string) (*model.Session, error) {
	if sessionID == "" {
		return nil, nil
	}
	session, err := s.sessionRepo.FindByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to find session: %w", err)
	}
	return session, nil
}

// IsAdmin はセッションIDが有効な管理者セッションを指すかを返す。
// 参照に失敗した場合はログに記録してfalseを返す。
func (s *Service) IsAdmin(ctx context.Context, sessionID string) bool {
	session, err := s.CurrentSession(ctx, sessionID)
	if err != nil {
		s.logger.Error("failed to look up admin session", slog.String("error", err.Error()))
		return false
	}
	return session != nil
}
