package cmds

import (
	"context"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jamerly/chatbox/pkg/client"
	"github.com/jamerly/chatbox/pkg/config"
	"github.com/jamerly/chatbox/pkg/logging"
	"github.com/jamerly/chatbox/pkg/session"
)

// App carries the resolved configuration shared by every subcommand.
type App struct {
	configFile string

	Viper    *viper.Viper
	Settings *config.Settings

	logFile *os.File
	store   session.Store
}

func NewApp() *App {
	return &App{}
}

func (a *App) AddPersistentFlags(cmd *cobra.Command) {
	defaults := config.Defaults()
	f := cmd.PersistentFlags()
	f.StringVar(&a.configFile, "config", "", "config file (default $HOME/.chatbox/config.yaml)")
	f.String("server-url", defaults.ServerURL, "chat backend base URL")
	f.String("app-id", "", "application id sent as X-App-Id")
	f.String("language", defaults.Language, "language sent as X-Accept-Language")
	f.String("token", "", "bearer token for authenticated chats")
	f.Bool("prompt-token", false, "ask for the bearer token on the terminal")
	f.String("session-store", defaults.Session.Store, "where the session id is kept (memory, file, sqlite, redis)")
	f.String("session-file", defaults.Session.File, "session file for the file store")
	f.String("sqlite-path", defaults.Session.SQLitePath, "database for the sqlite store")
	f.Bool("redis", false, "carry transcript updates over Redis Streams")
	f.String("redis-addr", defaults.Redis.Addr, "redis address for streams and the redis store")
	f.String("redis-group", defaults.Redis.Group, "redis consumer group of the UI")
	f.Bool("inactivity", defaults.Inactivity.Enabled, "close the chat after a period of inactivity")
	f.Duration("warn-after", defaults.Inactivity.WarningThreshold, "inactivity before the closing warning")
	f.Duration("close-after", defaults.Inactivity.HardLimit, "inactivity before the chat closes")
	f.String("log-level", defaults.Log.Level, "log level (trace, debug, info, warn, error)")
	f.String("log-format", defaults.Log.Format, "log format (text, json)")
	f.Bool("with-caller", false, "log caller file and line")
	f.String("log-file", "", "write logs to this file instead of stderr")
}

// Load resolves flags, environment and config file, then sets up logging.
func (a *App) Load(cmd *cobra.Command) error {
	v, err := config.NewViper(a.configFile)
	if err != nil {
		return err
	}
	if err := config.BindFlags(v, cmd.Flags()); err != nil {
		return err
	}
	s, err := config.Load(v)
	if err != nil {
		return err
	}
	a.Viper, a.Settings = v, s
	return a.initLogger(s.Log)
}

func (a *App) initLogger(s logging.Settings) error {
	if a.logFile != nil {
		_ = a.logFile.Close()
		a.logFile = nil
	}
	if s.File == "" {
		return logging.InitLogger(s, os.Stderr)
	}
	if err := os.MkdirAll(filepath.Dir(s.File), 0o755); err != nil {
		return errors.Wrap(err, "create log directory")
	}
	f, err := os.OpenFile(s.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return errors.Wrap(err, "open log file")
	}
	a.logFile = f
	return logging.InitLogger(s, f)
}

// RedirectLogs sends logs to the default log file unless one is configured.
// Used before the terminal UI takes over the screen.
func (a *App) RedirectLogs() error {
	s := a.Settings.Log
	if s.File != "" {
		return nil
	}
	s.File = filepath.Join(config.DefaultDir(), "chatbox.log")
	return a.initLogger(s)
}

// Client builds the API client from the validated settings.
func (a *App) Client() (*client.Client, error) {
	if err := a.Settings.Validate(); err != nil {
		return nil, err
	}
	opts := []client.Option{client.WithLanguage(a.Settings.Language)}
	switch {
	case a.Settings.Token != "":
		opts = append(opts, client.WithToken(a.Settings.Token))
	case a.Settings.PromptToken:
		opts = append(opts, client.WithTokenSource(client.NewPromptTokenSource()))
	}
	return client.New(a.Settings.ServerURL, a.Settings.AppID, opts...)
}

// Store opens the configured session store. It is closed by Close.
func (a *App) Store(ctx context.Context) (session.Store, error) {
	if a.store != nil {
		return a.store, nil
	}
	store, err := session.Open(ctx, a.Settings.SessionConfig())
	if err != nil {
		return nil, errors.Wrap(err, "open session store")
	}
	a.store = store
	return store, nil
}

func (a *App) Close() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to close session store")
		}
		a.store = nil
	}
	if a.logFile != nil {
		_ = a.logFile.Close()
		a.logFile = nil
	}
}
