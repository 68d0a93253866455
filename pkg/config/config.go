package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/jamerly/chatbox/pkg/client"
	"github.com/jamerly/chatbox/pkg/inactivity"
	"github.com/jamerly/chatbox/pkg/logging"
	"github.com/jamerly/chatbox/pkg/redisstream"
	"github.com/jamerly/chatbox/pkg/session"
)

const EnvPrefix = "CHATBOX"

// Settings is the resolved CLI configuration.
type Settings struct {
	ServerURL   string `mapstructure:"server-url"`
	AppID       string `mapstructure:"app-id"`
	Language    string `mapstructure:"language"`
	Token       string `mapstructure:"token"`
	PromptToken bool   `mapstructure:"prompt-token"`

	Session    SessionSettings      `mapstructure:"session"`
	Redis      redisstream.Settings `mapstructure:"redis"`
	Inactivity inactivity.Config    `mapstructure:"inactivity"`
	Log        logging.Settings     `mapstructure:"log"`
}

type SessionSettings struct {
	Store       string `mapstructure:"store"`
	File        string `mapstructure:"file"`
	SQLitePath  string `mapstructure:"sqlite-path"`
	RedisPrefix string `mapstructure:"redis-prefix"`
}

// flagKeys maps CLI flag names to configuration keys.
var flagKeys = map[string]string{
	"server-url":    "server-url",
	"app-id":        "app-id",
	"language":      "language",
	"token":         "token",
	"prompt-token":  "prompt-token",
	"session-store": "session.store",
	"session-file":  "session.file",
	"sqlite-path":   "session.sqlite-path",
	"redis":         "redis.enabled",
	"redis-addr":    "redis.addr",
	"redis-group":   "redis.group",
	"inactivity":    "inactivity.enabled",
	"warn-after":    "inactivity.warning",
	"close-after":   "inactivity.limit",
	"log-level":     "log.level",
	"log-format":    "log.format",
	"with-caller":   "log.with-caller",
	"log-file":      "log.file",
}

// DefaultDir is where the config file and local session data live.
func DefaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".chatbox"
	}
	return filepath.Join(home, ".chatbox")
}

func setDefaults(v *viper.Viper) {
	dir := DefaultDir()
	redis := redisstream.DefaultSettings()
	idle := inactivity.DefaultConfig()
	logs := logging.DefaultSettings()

	v.SetDefault("server-url", client.DefaultServerURL)
	v.SetDefault("app-id", "")
	v.SetDefault("language", client.DefaultLanguage)
	v.SetDefault("token", "")
	v.SetDefault("prompt-token", false)
	v.SetDefault("session.store", session.BackendFile)
	v.SetDefault("session.file", filepath.Join(dir, "session.yaml"))
	v.SetDefault("session.sqlite-path", filepath.Join(dir, "chatbox.db"))
	v.SetDefault("session.redis-prefix", session.DefaultRedisPrefix)
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", redis.Addr)
	v.SetDefault("redis.group", redis.Group)
	v.SetDefault("redis.consumer", redis.Consumer)
	v.SetDefault("inactivity.enabled", idle.Enabled)
	v.SetDefault("inactivity.warning", idle.WarningThreshold)
	v.SetDefault("inactivity.limit", idle.HardLimit)
	v.SetDefault("log.level", logs.Level)
	v.SetDefault("log.format", logs.Format)
	v.SetDefault("log.with-caller", false)
	v.SetDefault("log.file", "")
}

// Defaults returns the settings used when nothing is configured.
func Defaults() Settings {
	v := viper.New()
	setDefaults(v)
	var s Settings
	_ = v.Unmarshal(&s)
	return s
}

// NewViper returns a viper instance with defaults, CHATBOX_* environment
// overrides and the config file loaded. A missing default config file is
// not an error; a missing explicit one is.
func NewViper(configFile string) (*viper.Viper, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(DefaultDir())
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, errors.Wrap(err, "failed to read config file")
		}
	}
	return v, nil
}

// BindFlags binds every known flag present in flags to its config key.
func BindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	for name, key := range flagKeys {
		f := flags.Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return errors.Wrapf(err, "bind flag --%s", name)
		}
	}
	return nil
}

// Load decodes v into Settings and normalizes it.
func Load(v *viper.Viper) (*Settings, error) {
	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}
	s.AppID = strings.TrimSpace(s.AppID)
	s.Language = strings.TrimSpace(s.Language)
	if s.Language == "" {
		s.Language = client.DefaultLanguage
	}
	if strings.TrimSpace(s.ServerURL) == "" {
		s.ServerURL = client.DefaultServerURL
	}
	normalized, err := client.NormalizeServerURL(s.ServerURL)
	if err != nil {
		return nil, err
	}
	s.ServerURL = normalized
	s.Session.Store = strings.ToLower(strings.TrimSpace(s.Session.Store))
	return &s, nil
}

// Validate checks the settings needed to talk to a chat backend.
func (s *Settings) Validate() error {
	if s.AppID == "" {
		return errors.New("app id is required (--app-id or CHATBOX_APP_ID)")
	}
	switch s.Session.Store {
	case session.BackendMemory, session.BackendFile, session.BackendSQLite, session.BackendRedis:
	default:
		return errors.Errorf("unknown session store %q", s.Session.Store)
	}
	if s.Session.Store == session.BackendRedis && s.Redis.Addr == "" {
		return errors.New("redis session store needs redis.addr")
	}
	if err := s.Inactivity.Validate(); err != nil {
		return err
	}
	return s.Redis.Validate()
}

// SessionConfig returns the session store configuration.
func (s *Settings) SessionConfig() session.Config {
	return session.Config{
		Backend:     s.Session.Store,
		FilePath:    s.Session.File,
		SQLitePath:  s.Session.SQLitePath,
		RedisAddr:   s.Redis.Addr,
		RedisPrefix: s.Session.RedisPrefix,
	}
}
