// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/hitoshi/samkitchen/internal/model"
)

// AdminSessionCookieName は管理者セッションIDを保持するCookieの名前。
const AdminSessionCookieName = "admin_session"

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// sessionContextKey はリクエストコンテキストに管理者セッションを格納するためのキー。
var sessionContextKey = contextKey("admin_session")

var adminFlagContextKey = contextKey("admin_flag")

// adminFlag は外側のログミドルウェアへ管理者リクエストであることを伝える。
type adminFlag struct {
	set bool
}

func withAdminFlag(ctx context.Context, flag *adminFlag) context.Context {
	return context.WithValue(ctx, adminFlagContextKey, flag)
}

// SessionFinder は管理者セッションの検索に必要なインターフェース。
// auth.Serviceが実装する。
type SessionFinder interface {
	CurrentSession(ctx context.Context, sessionID string) (*model.Session, error)
}

// NewAdminSessionMiddleware はCookieから管理者セッションを読み取り、
// 有効であればリクエストコンテキストに注入するミドルウェアを返す。
// 一般の訪問者もアクセスするため、セッションがなくても拒否はしない。
func NewAdminSessionMiddleware(finder SessionFinder) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(AdminSessionCookieName)
			if err != nil || cookie.Value == "" {
				next.ServeHTTP(w, r)
				return
			}

			session, err := finder.CurrentSession(r.Context(), cookie.Value)
			if err != nil {
				slog.Error("failed to find admin session",
					slog.String("error", err.Error()),
				)
				next.ServeHTTP(w, r)
				return
			}
			if session == nil {
				next.ServeHTTP(w, r)
				return
			}

			if flag, ok := r.Context().Value(adminFlagContextKey).(*adminFlag); ok {
				flag.set = true
			}
			next.ServeHTTP(w, r.WithContext(ContextWithSession(r.Context(), session)))
		})
	}
}

// RequireAdmin は管理者セッションのないリクエストを401で拒否するミドルウェア。
// NewAdminSessionMiddlewareの後に配置する。
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !IsAdmin(r.Context()) {
			WriteErrorResponse(w, http.StatusUnauthorized, model.NewAdminRequiredError())
			return
		}
		next.ServeHTTP(w, r)
	})
}

// SessionFromContext はリクエストコンテキストから管理者セッションを取得する。
func SessionFromContext(ctx context.Context) (*model.Session, bool) {
	session, ok := ctx.Value(sessionContextKey).(*model.Session)
	return session, ok && session != nil
}

// IsAdmin はコンテキストに管理者セッションがあるかを返す。
func IsAdmin(ctx context.Context) bool {
	_, ok := SessionFromContext(ctx)
	return ok
}

// ContextWithSession はコンテキストに管理者セッションを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithSession(ctx context.Context, session *model.Session) context.Context {
	return context.WithValue(ctx, sessionContextKey, session)
}
