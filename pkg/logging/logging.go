package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type Settings struct {
	Level      string `mapstructure:"level" yaml:"level"`
	Format     string `mapstructure:"format" yaml:"format"`
	WithCaller bool   `mapstructure:"with-caller" yaml:"with-caller"`
	// File receives log output instead of stderr when set. The terminal UI
	// needs this since it owns the screen.
	File string `mapstructure:"file" yaml:"file"`
}

func DefaultSettings() Settings {
	return Settings{Level: "info", Format: "text"}
}

// InitLogger configures the global zerolog logger. Text output is colored
// only when w is a terminal.
func InitLogger(s Settings, w io.Writer) error {
	if w == nil {
		w = os.Stderr
	}
	level := zerolog.InfoLevel
	if s.Level != "" {
		l, err := zerolog.ParseLevel(strings.ToLower(s.Level))
		if err != nil {
			return errors.Wrapf(err, "invalid log level %q", s.Level)
		}
		level = l
	}

	var out io.Writer
	switch strings.ToLower(s.Format) {
	case "", "text":
		noColor := true
		if f, ok := w.(*os.File); ok {
			noColor = !isatty.IsTerminal(f.Fd())
		}
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen, NoColor: noColor}
	case "json":
		out = w
	default:
		return errors.Errorf("invalid log format %q", s.Format)
	}

	ctx := zerolog.New(out).With().Timestamp()
	if s.WithCaller {
		ctx = ctx.Caller()
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = ctx.Logger()
	return nil
}
