package configutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

type testConfig struct {
	Port     int      `json:"port" yaml:"port"`
	BaseUrl  string   `json:"base_url" yaml:"base_url"`
	Verbose  bool     `json:"verbose" yaml:"verbose"`
	Cookies  []string `json:"cookies" yaml:"cookies"`
	Database struct {
		File string `json:"file" yaml:"file"`
	} `json:"database" yaml:"database"`
}

func write(t testing.TB, path, contents string) {
	err := os.WriteFile(path, []byte(contents), 0600)
	require.NoError(t, err)
}

func TestReadConfigMergesLocal(t *testing.T) {
	dir := t.TempDir()
	write(t, filepath.Join(dir, "config.json5"), `{
		// comments are allowed
		port: 8080,
		base_url: "https://isu.uust.ru/",
		database: { file: "<dev_state>/isugrades.db" },
	}`)
	write(t, filepath.Join(dir, "config.local.json5"), `{
		port: 9090,
		verbose: true,
	}`)

	config, err := ReadConfig[testConfig](filepath.Join(dir, "config.json5"))
	require.NoError(t, err)
	require.Equal(t, 9090, config.Port)
	require.Equal(t, "https://isu.uust.ru/", config.BaseUrl)
	require.True(t, config.Verbose)
	require.Equal(t, "<dev_state>/isugrades.db", config.Database.File)
}

func TestReadConfigYaml(t *testing.T) {
	dir := t.TempDir()
	write(t, filepath.Join(dir, "config.yaml"), "port: 1234\ncookies:\n  - PHPSESSID\n  - isu_person\n")

	config, err := ReadConfig[testConfig](filepath.Join(dir, "config.yaml"))
	require.NoError(t, err)
	require.Equal(t, 1234, config.Port)
	require.Equal(t, []string{"PHPSESSID", "isu_person"}, config.Cookies)
}

func TestReadConfigMissing(t *testing.T) {
	_, err := ReadConfig[testConfig](filepath.Join(t.TempDir(), "config.json5"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestReadConfigUnsupported(t *testing.T) {
	dir := t.TempDir()
	write(t, filepath.Join(dir, "config.toml"), "port = 1")

	_, err := ReadConfig[testConfig](filepath.Join(dir, "config.toml"))
	require.Error(t, err)
	require.NotErrorIs(t, err, os.ErrNotExist)
}
