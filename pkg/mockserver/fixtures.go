package mockserver

import (
	_ "embed"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/jamerly/chatbox/pkg/chatbox"
)

//go:embed fixtures.yaml
var defaultFixtures []byte

// Fixtures is the canned data served by the mock backend.
type Fixtures struct {
	Welcome          string                `yaml:"welcome"`
	ResponseTemplate string                `yaml:"responseTemplate"`
	History          []chatbox.HistoryItem `yaml:"history"`
}

// DefaultFixtures returns the embedded fixtures.
func DefaultFixtures() Fixtures {
	f, err := ParseFixtures(defaultFixtures)
	if err != nil {
		panic(errors.Wrap(err, "embedded fixtures are invalid"))
	}
	return f
}

func ParseFixtures(data []byte) (Fixtures, error) {
	var f Fixtures
	if err := yaml.Unmarshal(data, &f); err != nil {
		return Fixtures{}, errors.Wrap(err, "parse fixtures")
	}
	if f.ResponseTemplate == "" {
		f.ResponseTemplate = `Mock response to: "%s"`
	}
	return f, nil
}

// LoadFixtures reads fixtures from a YAML file.
func LoadFixtures(path string) (Fixtures, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Fixtures{}, errors.Wrapf(err, "read fixtures %s", path)
	}
	return ParseFixtures(data)
}
