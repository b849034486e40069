package settings

import (
	"context"
	"slices"
	"strings"
	"testing"

	"github.com/hitoshi/samkitchen/internal/repository"
)

const remoteURL = "https://gist.githubusercontent.com/sam/abc/raw/settings.json"

func TestResolver_DefaultsOnly(t *testing.T) {
	cache := newMemoryCache()
	store := NewStore()
	rec := &mockRecorder{}

	res := NewResolver(store, cache, nil, discardLogger(), rec).Resolve(context.Background())

	if !slices.Equal(res.Sources, []string{SourceDefaults}) {
		t.Errorf("Sources = %v, want [defaults]", res.Sources)
	}
	if res.Settings.AdminPassword != DefaultAdminPassword {
		t.Errorf("AdminPassword = %q", res.Settings.AdminPassword)
	}
	if !store.Resolved() {
		t.Error("store should be marked resolved")
	}
	if _, found, _ := cache.Get(context.Background(), repository.SettingsCacheKey); !found {
		t.Error("resolved settings must be persisted to the local cache")
	}
	if !slices.Equal(rec.resolutions, []string{SourceDefaults}) {
		t.Errorf("recorded = %v", rec.resolutions)
	}
}

func TestResolver_MergeOrder(t *testing.T) {
	tests := []struct {
		name        string
		local       string
		remote      string
		remoteErr   error
		wantMessage string
		wantSources []string
	}{
		{
			name:        "remote wins",
			local:       `{"subscriptionMessage":"L","gistUrl":"` + remoteURL + `"}`,
			remote:      `{"subscriptionMessage":"R"}`,
			wantMessage: "R",
			wantSources: []string{SourceDefaults, SourceLocal, SourceRemote},
		},
		{
			name:        "remote fails, local wins",
			local:       `{"subscriptionMessage":"L","gistUrl":"` + remoteURL + `"}`,
			remoteErr:   errRemoteDown,
			wantMessage: "L",
			wantSources: []string{SourceDefaults, SourceLocal},
		},
		{
			name:        "no remote address, local wins",
			local:       `{"subscriptionMessage":"L"}`,
			remote:      `{"subscriptionMessage":"R"}`,
			wantMessage: "L",
			wantSources: []string{SourceDefaults, SourceLocal},
		},
		{
			name:        "remote does not define the field",
			local:       `{"gistUrl":"` + remoteURL + `"}`,
			remote:      `{"adminUsername":"chef"}`,
			wantMessage: DefaultSubscriptionMessage,
			wantSources: []string{SourceDefaults, SourceLocal, SourceRemote},
		},
		{
			name:        "malformed remote document",
			local:       `{"subscriptionMessage":"L","gistUrl":"` + remoteURL + `"}`,
			remote:      `<html>not json</html>`,
			wantMessage: "L",
			wantSources: []string{SourceDefaults, SourceLocal},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cache := newMemoryCache()
			cache.entries[repository.SettingsCacheKey] = tt.local
			fetcher := &mockFetcher{fetchFn: func(context.Context, string) ([]byte, error) {
				if tt.remoteErr != nil {
					return nil, tt.remoteErr
				}
				return []byte(tt.remote), nil
			}}

			res := NewResolver(NewStore(), cache, fetcher, discardLogger(), nil).Resolve(context.Background())

			if res.Settings.SubscriptionMessage != tt.wantMessage {
				t.Errorf("SubscriptionMessage = %q, want %q", res.Settings.SubscriptionMessage, tt.wantMessage)
			}
			if !slices.Equal(res.Sources, tt.wantSources) {
				t.Errorf("Sources = %v, want %v", res.Sources, tt.wantSources)
			}
		})
	}
}

func TestResolver_NeverFails(t *testing.T) {
	cache := newMemoryCache()
	cache.entries[repository.SettingsCacheKey] = "{not valid json"
	store := NewStore()

	res := NewResolver(store, cache, &mockFetcher{fetchFn: func(context.Context, string) ([]byte, error) {
		t.Error("remote must not be fetched without an address")
		return nil, nil
	}}, discardLogger(), nil).Resolve(context.Background())

	if res.Settings.AdminUsername != DefaultAdminUsername || res.Settings.SubscriptionMessage != DefaultSubscriptionMessage {
		t.Errorf("Settings = %+v, want defaults", res.Settings)
	}
	if !store.Resolved() {
		t.Error("store should be marked resolved")
	}

	// 不正なキャッシュは既定値で上書きされる
	v, _, _ := cache.Get(context.Background(), repository.SettingsCacheKey)
	if !strings.Contains(v, DefaultAdminUsername) {
		t.Errorf("cache = %q, want defaults persisted", v)
	}
}

func TestResolver_CacheErrorsAreSwallowed(t *testing.T) {
	cache := newMemoryCache()
	cache.getErr = errRemoteDown
	cache.setErr = errRemoteDown

	res := NewResolver(NewStore(), cache, nil, discardLogger(), nil).Resolve(context.Background())
	if res.Settings.AdminUsername != DefaultAdminUsername {
		t.Errorf("Settings = %+v, want defaults", res.Settings)
	}
}

func TestResolver_RemoteCannotOverrideAddressOrToken(t *testing.T) {
	cache := newMemoryCache()
	cache.entries[repository.SettingsCacheKey] = `{"gistUrl":"` + remoteURL + `","githubToken":"local-token"}`
	fetcher := &mockFetcher{fetchFn: func(context.Context, string) ([]byte, error) {
		return []byte(`{"gistUrl":"https://evil.example/x","githubToken":"evil","adminUsername":"chef"}`), nil
	}}

	res := NewResolver(NewStore(), cache, fetcher, discardLogger(), nil).Resolve(context.Background())

	if res.Settings.GistURL != remoteURL || res.Settings.GithubToken != "local-token" {
		t.Errorf("GistURL/GithubToken = %q/%q, want local values", res.Settings.GistURL, res.Settings.GithubToken)
	}
	if res.Settings.AdminUsername != "chef" {
		t.Errorf("AdminUsername = %q, want remote value", res.Settings.AdminUsername)
	}
	if len(fetcher.urls) != 1 || fetcher.urls[0] != remoteURL {
		t.Errorf("fetched = %v", fetcher.urls)
	}
}
