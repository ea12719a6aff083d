package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("STORE_BACKEND", "memory")
	t.Setenv("CURATOR_CONFIG", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, BackendMemory, cfg.StoreBackend)
	assert.Equal(t, "news", cfg.CandidatesSheet)
	assert.Equal(t, "posts", cfg.ApprovedSheet)
	assert.Equal(t, 20, cfg.FeedLimit)
	assert.Equal(t, 10*time.Second, cfg.FetchTimeout)
	assert.Equal(t, EmptyBodyDrop, cfg.EmptyBodyPolicy)
	assert.Equal(t, []string{"news.google.com"}, cfg.IndirectionHosts)
	assert.Len(t, cfg.Feeds, 8)
	assert.Contains(t, cfg.Keywords.Allow, "микробиом")
	assert.Contains(t, cfg.Keywords.Block, "скандал")
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("STORE_BACKEND", "SQLite")
	t.Setenv("SQLITE_PATH", "/tmp/curator.db")
	t.Setenv("FEED_LIMIT", "5")
	t.Setenv("FETCH_TIMEOUT", "3s")
	t.Setenv("EMPTY_BODY_POLICY", "keep")
	t.Setenv("READABILITY_FALLBACK", "true")
	t.Setenv("INDIRECTION_HOSTS", " news.google.com , feedproxy.example ,")
	t.Setenv("SCHEDULE_CRON", "*/30 * * * *")
	t.Setenv("CURATOR_CONFIG", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, BackendSQLite, cfg.StoreBackend)
	assert.Equal(t, "/tmp/curator.db", cfg.SQLitePath)
	assert.Equal(t, 5, cfg.FeedLimit)
	assert.Equal(t, 3*time.Second, cfg.FetchTimeout)
	assert.Equal(t, EmptyBodyKeep, cfg.EmptyBodyPolicy)
	assert.True(t, cfg.ReadabilityFallback)
	assert.Equal(t, []string{"news.google.com", "feedproxy.example"}, cfg.IndirectionHosts)
	assert.Equal(t, "*/30 * * * *", cfg.ScheduleCron)
}

func TestLoadInvalidNumbersFallBack(t *testing.T) {
	t.Setenv("STORE_BACKEND", "memory")
	t.Setenv("FEED_LIMIT", "many")
	t.Setenv("FETCH_TIMEOUT", "soon")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 20, cfg.FeedLimit)
	assert.Equal(t, 10*time.Second, cfg.FetchTimeout)
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	t.Run("sheets without credentials", func(t *testing.T) {
		t.Setenv("STORE_BACKEND", "sheets")
		t.Setenv("SPREADSHEET_ID", "")
		t.Setenv("GOOGLE_CREDS", "")
		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("unknown backend", func(t *testing.T) {
		t.Setenv("STORE_BACKEND", "postgres")
		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("unknown empty body policy", func(t *testing.T) {
		t.Setenv("STORE_BACKEND", "memory")
		t.Setenv("EMPTY_BODY_POLICY", "maybe")
		_, err := Load()
		assert.Error(t, err)
	})
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "curator.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
feeds:
  - url: https://news.google.com/rss/search?q=microbiome&hl=ru
    resolve: true
  - url: https://indicator.ru/rss
keywords:
  allow: [микробиом, кетоз]
  block: [скандал]
`), 0644))

	t.Setenv("STORE_BACKEND", "memory")
	t.Setenv("CURATOR_CONFIG", path)

	cfg, err := Load()
	require.NoError(t, err)

	require.Len(t, cfg.Feeds, 2)
	assert.True(t, cfg.Feeds[0].Resolve)
	assert.False(t, cfg.Feeds[1].Resolve)
	assert.Equal(t, []string{"микробиом", "кетоз"}, cfg.Keywords.Allow)
	assert.Equal(t, []string{"скандал"}, cfg.Keywords.Block)
}

func TestLoadFileKeepsMissingSections(t *testing.T) {
	path := filepath.Join(t.TempDir(), "curator.yaml")
	require.NoError(t, os.WriteFile(path, []byte("keywords:\n  allow: [диет]\n"), 0644))

	cfg := &Config{Feeds: DefaultFeeds(), Keywords: DefaultKeywords()}
	require.NoError(t, cfg.LoadFile(path))

	assert.Len(t, cfg.Feeds, 8)
	assert.Equal(t, []string{"диет"}, cfg.Keywords.Allow)
	assert.Empty(t, cfg.Keywords.Block)
}

func TestLoadFileErrors(t *testing.T) {
	cfg := &Config{}
	assert.Error(t, cfg.LoadFile(filepath.Join(t.TempDir(), "missing.yaml")))

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("feeds: [\n"), 0644))
	assert.Error(t, cfg.LoadFile(path))
}

func TestFeedURLsAreValidated(t *testing.T) {
	path := filepath.Join(t.TempDir(), "curator.yaml")
	require.NoError(t, os.WriteFile(path, []byte("feeds:\n  - url: not a url\n"), 0644))

	t.Setenv("STORE_BACKEND", "memory")
	t.Setenv("CURATOR_CONFIG", path)

	_, err := Load()
	assert.Error(t, err)
}
