package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	require.Equal(t, 5, cfg.Enrich.Concurrency)
	require.Equal(t, 50, cfg.Enrich.ReportEvery)
	require.False(t, cfg.Enrich.Skip)
	require.Equal(t, "https://openlibrary.org", cfg.Catalog.APIBase)
	require.Equal(t, "https://covers.openlibrary.org", cfg.Catalog.CoversBase)
	require.Equal(t, 10*time.Second, cfg.Catalog.SearchTimeout())
	require.Equal(t, 5*time.Second, cfg.Catalog.VerifyTimeout())
	require.Equal(t, 3, cfg.Catalog.SearchAttempts)
	require.Equal(t, 2, cfg.Catalog.VerifyAttempts)
	require.EqualValues(t, 1000, cfg.Catalog.MinCoverBytes)
	require.Equal(t, time.Second, cfg.Catalog.BackoffUnit())
	require.Equal(t, "data/books.json", cfg.Output.BooksPath)
	require.Equal(t, 8000, cfg.Server.Port)
	require.Equal(t, "file", cfg.Ratings.Provider)
	require.Equal(t, "data/ratings.json", cfg.Ratings.Path)
	require.True(t, cfg.Logging.Development)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := `
enrich:
  concurrency: 8
  skip: true
catalog:
  user_agent: "custom/2.0"
server:
  port: 9000
ratings:
  provider: postgres
  dsn: "postgres://localhost/shelfmark"
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 8, cfg.Enrich.Concurrency)
	require.True(t, cfg.Enrich.Skip)
	require.Equal(t, "custom/2.0", cfg.Catalog.UserAgent)
	require.Equal(t, 9000, cfg.Server.Port)
	require.Equal(t, "postgres", cfg.Ratings.Provider)
	// Unset keys keep their defaults.
	require.Equal(t, 50, cfg.Enrich.ReportEvery)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("SHELFMARK_ENRICH_CONCURRENCY", "12")

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, 12, cfg.Enrich.Concurrency)
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	bad := cfg
	bad.Enrich.Concurrency = 0
	require.Error(t, bad.Validate())

	bad = cfg
	bad.Catalog.APIBase = ""
	require.Error(t, bad.Validate())

	bad = cfg
	bad.Ratings.Provider = "redis"
	require.Error(t, bad.Validate())

	bad = cfg
	bad.Ratings.Provider = "postgres"
	bad.Ratings.DSN = ""
	require.Error(t, bad.Validate())

	bad = cfg
	bad.Server.Port = 0
	require.Error(t, bad.Validate())
}
