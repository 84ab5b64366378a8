package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		App:    AppConfig{Environment: "development"},
		Logger: LoggerConfig{Level: "info"},
		Data:   DataConfig{BasePath: "/tmp/shelfmark-test"},
		Library: LibraryConfig{
			BooksPath:     "/tmp/books",
			AuthorSegment: 5,
			Watch:         true,
		},
		Server: ServerConfig{
			Port:          "8080",
			ReadTimeout:   15 * time.Second,
			WriteTimeout:  15 * time.Second,
			IdleTimeout:   60 * time.Second,
			DownloadRPS:   5,
			DownloadBurst: 10,
		},
	}
}

func TestValidate_Valid(t *testing.T) {
	assert.NoError(t, validConfig().Validate())
}

func TestValidate_InvalidEnvironment(t *testing.T) {
	cfg := validConfig()
	cfg.App.Environment = "testing"
	assert.Error(t, cfg.Validate())
}

func TestValidate_InvalidLogLevel(t *testing.T) {
	cfg := validConfig()
	cfg.Logger.Level = "verbose"
	assert.Error(t, cfg.Validate())
}

func TestValidate_EmptyDataPath(t *testing.T) {
	cfg := validConfig()
	cfg.Data.BasePath = ""
	assert.Error(t, cfg.Validate())
}

func TestValidate_NegativeAuthorSegment(t *testing.T) {
	cfg := validConfig()
	cfg.Library.AuthorSegment = -1
	assert.Error(t, cfg.Validate())
}

func TestValidate_ZeroAuthorSegment(t *testing.T) {
	// Segment 0 would silently fall back to the extractor default.
	cfg := validConfig()
	cfg.Library.AuthorSegment = 0
	assert.Error(t, cfg.Validate())
}

func TestValidate_EmptyBooksPathAllowed(t *testing.T) {
	cfg := validConfig()
	cfg.Library.BooksPath = ""
	assert.NoError(t, cfg.Validate())
}

func TestGetConfigValue_Precedence(t *testing.T) {
	t.Setenv("SHELFMARK_TEST_KEY", "from-env")

	assert.Equal(t, "from-flag", getConfigValue("from-flag", "SHELFMARK_TEST_KEY", "default"))
	assert.Equal(t, "from-env", getConfigValue("", "SHELFMARK_TEST_KEY", "default"))
	assert.Equal(t, "default", getConfigValue("", "SHELFMARK_TEST_MISSING", "default"))
}

func TestGetBoolConfigValue(t *testing.T) {
	assert.True(t, getBoolConfigValue("yes", "UNSET_KEY", false))
	assert.True(t, getBoolConfigValue("1", "UNSET_KEY", false))
	assert.False(t, getBoolConfigValue("nope", "UNSET_KEY", true))
	assert.True(t, getBoolConfigValue("", "UNSET_KEY", true))
}

func TestGetIntConfigValue(t *testing.T) {
	assert.Equal(t, 7, getIntConfigValue("7", "UNSET_KEY", 5))
	assert.Equal(t, 5, getIntConfigValue("", "UNSET_KEY", 5))
	assert.Equal(t, 5, getIntConfigValue("not-a-number", "UNSET_KEY", 5))
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	content := "# comment\nSHELFMARK_ENV_FILE_KEY=\"quoted value\"\n\nSHELFMARK_ENV_FILE_OTHER=plain\n"
	require.NoError(t, os.WriteFile(envPath, []byte(content), 0o600))

	t.Setenv("SHELFMARK_ENV_FILE_KEY", "")
	t.Setenv("SHELFMARK_ENV_FILE_OTHER", "")
	os.Unsetenv("SHELFMARK_ENV_FILE_KEY")
	os.Unsetenv("SHELFMARK_ENV_FILE_OTHER")

	require.NoError(t, loadEnvFile(envPath))
	assert.Equal(t, "quoted value", os.Getenv("SHELFMARK_ENV_FILE_KEY"))
	assert.Equal(t, "plain", os.Getenv("SHELFMARK_ENV_FILE_OTHER"))
}

func TestLoadEnvFile_MalformedLine(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envPath, []byte("NOT A PAIR\n"), 0o600))

	assert.Error(t, loadEnvFile(envPath))
}

func TestExpandPath_Tilde(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	expanded, err := expandPath("~/books", "")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "books"), expanded)
}
