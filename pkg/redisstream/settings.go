package redisstream

import "github.com/pkg/errors"

// Settings holds Redis Streams transport configuration for Watermill.
type Settings struct {
	Enabled  bool   `yaml:"enabled" mapstructure:"enabled"`
	Addr     string `yaml:"addr" mapstructure:"addr"`
	Group    string `yaml:"group" mapstructure:"group"`
	Consumer string `yaml:"consumer" mapstructure:"consumer"`
}

func DefaultSettings() Settings {
	return Settings{
		Addr:     "localhost:6379",
		Group:    "chatbox-ui",
		Consumer: "ui-1",
	}
}

func (s Settings) Validate() error {
	if !s.Enabled {
		return nil
	}
	if s.Addr == "" {
		return errors.New("redis address is required when redis streams are enabled")
	}
	if s.Group == "" || s.Consumer == "" {
		return errors.New("redis consumer group and consumer name are required")
	}
	return nil
}
