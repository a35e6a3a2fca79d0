package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"clawredeem/internal/redeemer"
	"clawredeem/internal/scrapers/clawportal"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func write(t *testing.T, dir, name, contents string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(contents), 0666))
	return path
}

func TestLoadDefaults(t *testing.T) {
	dir := t.TempDir()
	path := write(t, dir, "clawredeem.json5", `{
		// only the portal is required
		base_url: "https://portal.example",
	}`)

	settings, err := Load(path)
	require.NoError(t, err)

	expected := Settings{
		BaseUrl:           "https://portal.example",
		Endpoints:         clawportal.DefaultEndpoints(),
		UserFile:          filepath.Join(dir, "user.json"),
		CodesFile:         filepath.Join(dir, "codes.txt"),
		Journal:           filepath.Join(dir, "clawredeem.db"),
		Pacing:            redeemer.DefaultPacing(),
		Transport:         redeemer.AbortOnTransportError,
		RequestsPerSecond: 2,
	}
	if diff := cmp.Diff(expected, settings); diff != "" {
		t.Fatal(diff)
	}
}

func TestLoadLocalOverride(t *testing.T) {
	dir := t.TempDir()
	path := write(t, dir, "clawredeem.json5", `{
		base_url: "https://portal.example",
		endpoints: {dashboard: "/konto"},
		pacing: {after_rejected: "5s"},
		on_transport_error: "skip",
	}`)
	write(t, dir, "clawredeem.local.json5", `{
		base_url: "http://localhost:8080",
		journal: "",
		requests_per_second: 0,
		pacing: {after_points_refresh: "1m"},
	}`)

	settings, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "http://localhost:8080", settings.BaseUrl)
	require.Equal(t, "/konto", settings.Endpoints.Dashboard)
	require.Equal(t, "/login", settings.Endpoints.Login)
	require.Equal(t, redeemer.Pacing{
		AfterRejected:      5 * time.Second,
		AfterAccepted:      time.Second,
		AfterPointsRefresh: time.Minute,
	}, settings.Pacing)
	require.Equal(t, redeemer.SkipOnTransportError, settings.Transport)
	require.Empty(t, settings.Journal)
	require.Zero(t, settings.RequestsPerSecond)
}

func TestLoadErrors(t *testing.T) {
	table := []struct {
		name   string
		config string
		field  string
	}{
		{name: "missing base url", config: `{}`, field: "base_url"},
		{name: "not http", config: `{base_url: "ftp://portal"}`, field: "base_url"},
		{name: "no host", config: `{base_url: "https://"}`, field: "base_url"},
		{
			name:   "bad duration",
			config: `{base_url: "https://p", pacing: {after_accepted: "soon"}}`,
			field:  "pacing.after_accepted",
		},
		{
			name:   "negative duration",
			config: `{base_url: "https://p", pacing: {after_rejected: "-1s"}}`,
			field:  "pacing.after_rejected",
		},
		{
			name:   "unknown policy",
			config: `{base_url: "https://p", on_transport_error: "retry"}`,
			field:  "on_transport_error",
		},
		{
			name:   "negative rate",
			config: `{base_url: "https://p", requests_per_second: -1}`,
			field:  "requests_per_second",
		},
	}

	for _, row := range table {
		t.Run(row.name, func(t *testing.T) {
			path := write(t, t.TempDir(), "clawredeem.json5", row.config)
			_, err := Load(path)
			var configErr *ConfigError
			require.ErrorAs(t, err, &configErr)
			require.Equal(t, row.field, configErr.Field)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "clawredeem.json5"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadCredentials(t *testing.T) {
	dir := t.TempDir()

	creds, err := LoadCredentials(write(t, dir, "user.json", `{"email": " user@example.com ", "password": "hunter2"}`))
	require.NoError(t, err)
	require.Equal(t, redeemer.Credentials{Email: "user@example.com", Password: "hunter2"}, creds)

	_, err = LoadCredentials(write(t, dir, "nopass.json", `{"email": "user@example.com"}`))
	var configErr *ConfigError
	require.ErrorAs(t, err, &configErr)
	require.Equal(t, "password", configErr.Field)

	_, err = LoadCredentials(filepath.Join(dir, "missing.json"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadCodes(t *testing.T) {
	path := write(t, t.TempDir(), "codes.txt", "\ufeffAAAAAAAAAA\r\n\n  # bought 2026-02\n BBBBBBBBBBBB \n#CCCCCCCCCC\nDDDDDDDDDD")

	codes, err := LoadCodes(path)
	require.NoError(t, err)
	require.Equal(t, []string{"AAAAAAAAAA", "BBBBBBBBBBBB", "DDDDDDDDDD"}, codes)

	require.Empty(t, ParseCodes(""))
}
