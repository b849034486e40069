package settings

import (
	"context"
	"encoding/json"
	"errors"
	"slices"
	"testing"

	"github.com/hitoshi/samkitchen/internal/gist"
	"github.com/hitoshi/samkitchen/internal/model"
	"github.com/hitoshi/samkitchen/internal/repository"
)

func strPtr(s string) *string { return &s }

// resolvedStore は指定ドキュメントで解決済みのStoreを返す。
func resolvedStore(t *testing.T, cache *memoryCache, local string) *Store {
	t.Helper()
	if local != "" {
		cache.entries[repository.SettingsCacheKey] = local
	}
	store := NewStore()
	NewResolver(store, cache, nil, discardLogger(), nil).Resolve(context.Background())
	return store
}

func cachedSettings(t *testing.T, cache *memoryCache) model.Settings {
	t.Helper()
	raw, found, _ := cache.Get(context.Background(), repository.SettingsCacheKey)
	if !found {
		t.Fatal("settings not cached")
	}
	patch, _, err := DecodeDocument([]byte(raw))
	if err != nil {
		t.Fatalf("cached settings malformed: %v", err)
	}
	return model.Settings{}.Apply(patch)
}

func TestSynchronizer_Save_LocalOnly(t *testing.T) {
	cache := newMemoryCache()
	store := resolvedStore(t, cache, "")
	writer := &mockWriter{}
	rec := &mockRecorder{}

	result, err := NewSynchronizer(store, cache, writer, discardLogger(), rec).Save(context.Background(), model.SettingsPatch{
		SubscriptionMessage: strPtr("new message"),
	})
	if err != nil {
		t.Fatalf("Save error = %v", err)
	}

	if !result.LocalSaved || result.LocalError != nil {
		t.Errorf("local = %v/%v, want saved", result.LocalSaved, result.LocalError)
	}
	if result.RemoteAttempted || writer.calls != 0 {
		t.Error("remote must not be attempted without address and token")
	}
	if store.Current().SubscriptionMessage != "new message" {
		t.Error("store not updated")
	}
	if cachedSettings(t, cache).SubscriptionMessage != "new message" {
		t.Error("cache not updated")
	}
	if !slices.Equal(rec.syncs, []string{SyncSkipped}) {
		t.Errorf("syncs = %v", rec.syncs)
	}
}

func TestSynchronizer_Save_BlankPasswordKeepsExisting(t *testing.T) {
	cache := newMemoryCache()
	store := resolvedStore(t, cache, `{"adminPassword":"old-secret","gistUrl":"`+remoteURL+`","githubToken":"tok"}`)
	writer := &mockWriter{updateFn: func(context.Context, gist.DocumentRef, string, []byte) (string, string, error) {
		return "rev2", "https://gist.githubusercontent.com/sam/abc/raw/rev2/settings.json", nil
	}}

	for _, blank := range []string{"", "   "} {
		result, err := NewSynchronizer(store, cache, writer, discardLogger(), nil).Save(context.Background(), model.SettingsPatch{
			AdminUsername: strPtr("chef"),
			AdminPassword: strPtr(blank),
		})
		if err != nil {
			t.Fatalf("Save error = %v", err)
		}
		if result.Settings.AdminPassword != "old-secret" {
			t.Errorf("password = %q, want preserved", result.Settings.AdminPassword)
		}
		if got := cachedSettings(t, cache).AdminPassword; got != "old-secret" {
			t.Errorf("cached password = %q, want preserved", got)
		}

		var payload map[string]any
		if err := json.Unmarshal(writer.content, &payload); err != nil {
			t.Fatalf("remote payload not JSON: %v", err)
		}
		if payload["adminPassword"] != "old-secret" {
			t.Errorf("remote payload password = %v, want preserved", payload["adminPassword"])
		}
		if payload["adminUsername"] != "chef" {
			t.Errorf("remote payload username = %v", payload["adminUsername"])
		}
	}
}

func TestSynchronizer_Save_RemotePinsRevision(t *testing.T) {
	cache := newMemoryCache()
	store := resolvedStore(t, cache, `{"gistUrl":"`+remoteURL+`","githubToken":"ghp_tok"}`)
	const pinned = "https://gist.githubusercontent.com/sam/abc/raw/rev2/settings.json"
	writer := &mockWriter{updateFn: func(context.Context, gist.DocumentRef, string, []byte) (string, string, error) {
		return "rev2", pinned, nil
	}}
	rec := &mockRecorder{}

	result, err := NewSynchronizer(store, cache, writer, discardLogger(), rec).Save(context.Background(), model.SettingsPatch{
		AdminPassword: strPtr("new-secret"),
	})
	if err != nil {
		t.Fatalf("Save error = %v", err)
	}

	if !result.RemoteAttempted || !result.RemoteSynced || result.RemoteError != nil {
		t.Fatalf("remote = %+v", result)
	}
	if result.Revision != "rev2" {
		t.Errorf("Revision = %q", result.Revision)
	}
	if writer.token != "ghp_tok" {
		t.Errorf("token = %q", writer.token)
	}
	if writer.ref.ID != "abc" || writer.ref.File != "settings.json" {
		t.Errorf("ref = %+v", writer.ref)
	}

	var payload map[string]any
	json.Unmarshal(writer.content, &payload)
	if _, ok := payload["githubToken"]; ok {
		t.Error("payload must not contain the token")
	}
	if payload["adminPassword"] != "new-secret" {
		t.Errorf("payload password = %v", payload["adminPassword"])
	}

	if store.Current().GistURL != pinned {
		t.Errorf("store GistURL = %q, want pinned revision", store.Current().GistURL)
	}
	if cachedSettings(t, cache).GistURL != pinned {
		t.Error("cache GistURL not pinned")
	}
	if !slices.Equal(rec.syncs, []string{SyncSuccess}) {
		t.Errorf("syncs = %v", rec.syncs)
	}
}

func TestSynchronizer_Save_RemoteFailureKeepsLocalSave(t *testing.T) {
	cache := newMemoryCache()
	store := resolvedStore(t, cache, `{"gistUrl":"`+remoteURL+`","githubToken":"tok"}`)
	writer := &mockWriter{updateFn: func(context.Context, gist.DocumentRef, string, []byte) (string, string, error) {
		return "", "", errRemoteDown
	}}
	rec := &mockRecorder{}

	result, err := NewSynchronizer(store, cache, writer, discardLogger(), rec).Save(context.Background(), model.SettingsPatch{
		SubscriptionMessage: strPtr("kept locally"),
	})
	if err != nil {
		t.Fatalf("Save error = %v", err)
	}

	if !result.LocalSaved {
		t.Error("local save must succeed independently")
	}
	if !result.RemoteAttempted || result.RemoteSynced {
		t.Errorf("remote = attempted %v synced %v", result.RemoteAttempted, result.RemoteSynced)
	}
	if !errors.Is(result.RemoteError, errRemoteDown) {
		t.Errorf("RemoteError = %v", result.RemoteError)
	}
	if cachedSettings(t, cache).SubscriptionMessage != "kept locally" {
		t.Error("local save rolled back")
	}
	if store.Current().GistURL != remoteURL {
		t.Error("address must stay unchanged on failure")
	}
	if !slices.Equal(rec.syncs, []string{SyncFailure}) {
		t.Errorf("syncs = %v", rec.syncs)
	}
}

func TestSynchronizer_Save_InvalidRemoteAddress(t *testing.T) {
	cache := newMemoryCache()
	store := resolvedStore(t, cache, `{"gistUrl":"https://example.com/not-a-gist","githubToken":"tok"}`)
	writer := &mockWriter{}

	result, err := NewSynchronizer(store, cache, writer, discardLogger(), nil).Save(context.Background(), model.SettingsPatch{})
	if err != nil {
		t.Fatalf("Save error = %v", err)
	}
	if !errors.Is(result.RemoteError, gist.ErrInvalidRawURL) {
		t.Errorf("RemoteError = %v, want ErrInvalidRawURL", result.RemoteError)
	}
	if writer.calls != 0 {
		t.Error("writer must not be called for an unparseable address")
	}
}

func TestSynchronizer_Save_LocalFailureReported(t *testing.T) {
	cache := newMemoryCache()
	store := resolvedStore(t, cache, "")
	cache.setErr = errRemoteDown

	result, err := NewSynchronizer(store, cache, nil, discardLogger(), nil).Save(context.Background(), model.SettingsPatch{
		SubscriptionMessage: strPtr("m"),
	})
	if err != nil {
		t.Fatalf("Save error = %v", err)
	}
	if result.LocalSaved || result.LocalError == nil {
		t.Errorf("local = %v/%v, want failure reported", result.LocalSaved, result.LocalError)
	}
	if store.Current().SubscriptionMessage != "m" {
		t.Error("in-memory settings should still reflect the save")
	}
}

func TestSynchronizer_Save_BeforeResolution(t *testing.T) {
	_, err := NewSynchronizer(NewStore(), newMemoryCache(), nil, discardLogger(), nil).Save(context.Background(), model.SettingsPatch{})
	if !errors.Is(err, ErrNotResolved) {
		t.Errorf("error = %v, want ErrNotResolved", err)
	}
}

func TestSynchronizer_Import(t *testing.T) {
	cache := newMemoryCache()
	store := resolvedStore(t, cache, "")

	result, dropped, err := NewSynchronizer(store, cache, nil, discardLogger(), nil).Import(context.Background(),
		[]byte(`{"subscriptionChannelLink":"https://t.me/new","unknown":true}`))
	if err != nil {
		t.Fatalf("Import error = %v", err)
	}
	if result.Settings.SubscriptionChannelLink != "https://t.me/new" {
		t.Errorf("link = %q", result.Settings.SubscriptionChannelLink)
	}
	if !slices.Contains(dropped, "unknown") {
		t.Errorf("dropped = %v", dropped)
	}

	if _, _, err := NewSynchronizer(store, cache, nil, discardLogger(), nil).Import(context.Background(), []byte(`[1,2]`)); !errors.Is(err, ErrNotObject) {
		t.Errorf("error = %v, want ErrNotObject", err)
	}
}

func TestStore_CurrentReturnsCopy(t *testing.T) {
	store := NewStore()
	s := store.Current()
	s.Advertisements[0].Text = "mutated"
	if store.Current().Advertisements[0].Text == "mutated" {
		t.Error("Current must return a copy")
	}
	if store.Resolved() {
		t.Error("new store must not be resolved")
	}
}
