package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_FileEnvAndFlags(t *testing.T) {
	path := writeConfig(t, `
server-url: chat.example.com/
app-id: from-file
language: fr-FR
session:
  store: sqlite
inactivity:
  warning: 10s
  limit: 20s
log:
  level: debug
`)
	t.Setenv("CHATBOX_LANGUAGE", "de-DE")

	v, err := NewViper(path)
	require.NoError(t, err)

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("app-id", "", "")
	flags.Duration("close-after", 0, "")
	require.NoError(t, flags.Parse([]string{"--app-id", "from-flag"}))
	require.NoError(t, BindFlags(v, flags))

	s, err := Load(v)
	require.NoError(t, err)
	require.NoError(t, s.Validate())

	require.Equal(t, "http://chat.example.com", s.ServerURL)
	require.Equal(t, "from-flag", s.AppID)
	require.Equal(t, "de-DE", s.Language)
	require.Equal(t, "sqlite", s.Session.Store)
	require.Equal(t, 10*time.Second, s.Inactivity.WarningThreshold)
	require.Equal(t, 20*time.Second, s.Inactivity.HardLimit)
	require.True(t, s.Inactivity.Enabled)
	require.Equal(t, "debug", s.Log.Level)
	require.Equal(t, "sqlite", s.SessionConfig().Backend)
}

func TestLoad_Defaults(t *testing.T) {
	v, err := NewViper(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	require.Nil(t, v)

	t.Setenv("HOME", t.TempDir())
	v, err = NewViper("")
	require.NoError(t, err)
	s, err := Load(v)
	require.NoError(t, err)

	require.Equal(t, "https://api.tiein.ai", s.ServerURL)
	require.Equal(t, "en-US", s.Language)
	require.Equal(t, 30*time.Second, s.Inactivity.WarningThreshold)
	require.Equal(t, 40*time.Second, s.Inactivity.HardLimit)
	require.Equal(t, "file", s.Session.Store)
	require.False(t, s.Redis.Enabled)
	require.Error(t, s.Validate())
}

func TestValidate(t *testing.T) {
	v, err := NewViper(writeConfig(t, "app-id: a\n"))
	require.NoError(t, err)
	s, err := Load(v)
	require.NoError(t, err)
	require.NoError(t, s.Validate())

	s.Session.Store = "etcd"
	require.Error(t, s.Validate())

	s.Session.Store = "memory"
	s.Inactivity.HardLimit = time.Second
	require.Error(t, s.Validate())
}

func TestDefaults(t *testing.T) {
	d := Defaults()
	require.Equal(t, "https://api.tiein.ai", d.ServerURL)
	require.Equal(t, "file", d.Session.Store)
	require.Equal(t, "localhost:6379", d.Redis.Addr)
	require.Equal(t, 40*time.Second, d.Inactivity.HardLimit)
	require.Equal(t, "info", d.Log.Level)
	require.Empty(t, d.Log.File)
}
