package cmds

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/require"

	"github.com/jamerly/chatbox/pkg/chatbox"
	"github.com/jamerly/chatbox/pkg/mockserver"
)

type cli struct {
	server    string
	storePath string
}

func newCLI(t *testing.T) *cli {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	prevLogger, prevLevel := log.Logger, zerolog.GlobalLevel()
	t.Cleanup(func() {
		log.Logger = prevLogger
		zerolog.SetGlobalLevel(prevLevel)
	})

	srv := httptest.NewServer(mockserver.New())
	t.Cleanup(srv.Close)
	return &cli{
		server:    srv.URL,
		storePath: filepath.Join(t.TempDir(), "session.yaml"),
	}
}

func (c *cli) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(""))
	base := []string{
		"--server-url", c.server,
		"--app-id", "test-app",
		"--session-store", "file",
		"--session-file", c.storePath,
		"--log-level", "error",
	}
	root.SetArgs(append(args, base...))
	err := root.Execute()
	return out.String(), err
}

func TestInitHistoryEnd(t *testing.T) {
	c := newCLI(t)

	out, err := c.run(t, "init")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(out, "session: "))
	require.Contains(t, out, "Welcome to the Mock ChatBox!")

	out, err = c.run(t, "history", "-o", "json")
	require.NoError(t, err)
	var items []chatbox.HistoryItem
	require.NoError(t, json.Unmarshal([]byte(out), &items))
	require.Len(t, items, 2)
	require.Equal(t, "Hello", items[0].UserMessage)

	out, err = c.run(t, "history")
	require.NoError(t, err)
	require.Contains(t, out, "> What can you do?\nI can simulate conversations for development purposes.\n")

	out, err = c.run(t, "end")
	require.NoError(t, err)
	require.Equal(t, "Session cleared.\n", out)

	_, err = c.run(t, "history")
	require.Error(t, err)
}

func TestSend(t *testing.T) {
	c := newCLI(t)
	out, err := c.run(t, "send", "hello", "there")
	require.NoError(t, err)
	require.Equal(t, "Mock response to: \"hello there\"\n", out)
}

func TestChatLineMode(t *testing.T) {
	c := newCLI(t)
	out, err := c.run(t, "chat", "--mode", "line")
	require.NoError(t, err)
	require.Contains(t, out, "Welcome to the Mock ChatBox!")
}

func TestMissingAppID(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	root := NewRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs([]string{"init", "--log-level", "error"})
	require.Error(t, root.Execute())
}
