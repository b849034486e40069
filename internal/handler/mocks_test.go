package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/hitoshi/samkitchen/internal/kitchen"
	"github.com/hitoshi/samkitchen/internal/model"
	"github.com/hitoshi/samkitchen/internal/settings"
)

// --- モック定義 ---

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

type mockGenerator struct {
	generateFn func(ctx context.Context, in model.FilterInput) (*model.Recipe, error)
	calls      []model.FilterInput
}

func (m *mockGenerator) Generate(ctx context.Context, in model.FilterInput) (*model.Recipe, error) {
	m.calls = append(m.calls, in)
	if m.generateFn != nil {
		return m.generateFn(ctx, in)
	}
	return &model.Recipe{RecipeName: "كبسة"}, nil
}

type mockDocumentSource struct {
	latestRawURLFn  func(ctx context.Context, id, file, token string) (string, error)
	fetchDocumentFn func(ctx context.Context, rawURL string) ([]byte, error)
}

func (m *mockDocumentSource) LatestRawURL(ctx context.Context, id, file, token string) (string, error) {
	if m.latestRawURLFn != nil {
		return m.latestRawURLFn(ctx, id, file, token)
	}
	return "https://gist.githubusercontent.com/u/" + id + "/raw/rev/" + file, nil
}

func (m *mockDocumentSource) FetchDocument(ctx context.Context, rawURL string) ([]byte, error) {
	if m.fetchDocumentFn != nil {
		return m.fetchDocumentFn(ctx, rawURL)
	}
	return []byte(`{}`), nil
}

type staticSettings struct {
	settings model.Settings
}

func (s *staticSettings) Current() model.Settings {
	return s.settings.Clone()
}

type mockSubmitter struct {
	submitFn func(ctx context.Context, in model.FilterInput, visitor kitchen.Visitor) kitchen.Outcome
	inputs   []model.FilterInput
	visitors []kitchen.Visitor
}

func (m *mockSubmitter) Submit(ctx context.Context, in model.FilterInput, visitor kitchen.Visitor) kitchen.Outcome {
	m.inputs = append(m.inputs, in)
	m.visitors = append(m.visitors, visitor)
	if m.submitFn != nil {
		return m.submitFn(ctx, in, visitor)
	}
	return kitchen.Outcome{Recipe: &model.Recipe{RecipeName: "كبسة"}}
}

type mockMarker struct {
	link   string
	marked int
}

func (m *mockMarker) Link() string { return m.link }

func (m *mockMarker) MarkSubscribed(w http.ResponseWriter) {
	m.marked++
	http.SetCookie(w, &http.Cookie{Name: "isSubscribed", Value: "true", Path: "/"})
}

type mockAuthenticator struct {
	loginFn   func(ctx context.Context, username, password string) (*model.Session, error)
	logoutFn  func(ctx context.Context, sessionID string) error
	loggedOut []string
}

func (m *mockAuthenticator) Login(ctx context.Context, username, password string) (*model.Session, error) {
	if m.loginFn != nil {
		return m.loginFn(ctx, username, password)
	}
	return &model.Session{ID: "session-1", Username: username}, nil
}

func (m *mockAuthenticator) Logout(ctx context.Context, sessionID string) error {
	m.loggedOut = append(m.loggedOut, sessionID)
	if m.logoutFn != nil {
		return m.logoutFn(ctx, sessionID)
	}
	return nil
}

type mockSaver struct {
	saveFn   func(ctx context.Context, patch model.SettingsPatch) (settings.SaveResult, error)
	importFn func(ctx context.Context, data []byte) (settings.SaveResult, []string, error)
	patches  []model.SettingsPatch
	imports  [][]byte
}

func (m *mockSaver) Save(ctx context.Context, patch model.SettingsPatch) (settings.SaveResult, error) {
	m.patches = append(m.patches, patch)
	if m.saveFn != nil {
		return m.saveFn(ctx, patch)
	}
	return settings.SaveResult{LocalSaved: true, Settings: settings.Defaults().Apply(patch)}, nil
}

func (m *mockSaver) Import(ctx context.Context, data []byte) (settings.SaveResult, []string, error) {
	m.imports = append(m.imports, data)
	if m.importFn != nil {
		return m.importFn(ctx, data)
	}
	return settings.SaveResult{LocalSaved: true, Settings: settings.Defaults()}, nil, nil
}

type mockImporter struct {
	importFn func(ctx context.Context, rawURL string) ([]model.Advertisement, error)
	urls     []string
}

func (m *mockImporter) Import(ctx context.Context, rawURL string) ([]model.Advertisement, error) {
	m.urls = append(m.urls, rawURL)
	if m.importFn != nil {
		return m.importFn(ctx, rawURL)
	}
	return nil, nil
}

// mockRenderer は描画内容を記録し、ステータスコードだけを書き込む。
type mockRenderer struct {
	page   string
	data   any
	status int
	err    error
}

func (m *mockRenderer) Render(w http.ResponseWriter, status int, page string, data any) error {
	m.page = page
	m.data = data
	m.status = status
	if m.err != nil {
		return m.err
	}
	w.WriteHeader(status)
	return nil
}

type mockHealthChecker struct {
	err error
}

func (m *mockHealthChecker) PingContext(ctx context.Context) error {
	return m.err
}

type mockSessionFinder struct {
	sessions map[string]*model.Session
}

func (m *mockSessionFinder) CurrentSession(ctx context.Context, sessionID string) (*model.Session, error) {
	return m.sessions[sessionID], nil
}
