package client

import (
	"encoding/json"
	"strings"

	"github.com/rs/zerolog/log"
)

// ParseWelcome extracts the welcome text. Some backends return the greeting
// in its streamed form, a run of {"chunk":...} objects optionally followed by
// [DONE]; those are joined. Plain text passes through. Surrounding double
// quotes are removed in both cases.
func ParseWelcome(raw string) string {
	text := raw
	trimmed := strings.TrimSpace(strings.Replace(raw, "[DONE]", "", 1))
	if strings.HasPrefix(trimmed, "{") && strings.HasSuffix(trimmed, "}") {
		var acc strings.Builder
		parsedAny := false
		for _, obj := range splitConcatenatedObjects(trimmed) {
			var p chunkObject
			if err := json.Unmarshal([]byte(obj), &p); err != nil {
				log.Warn().Err(err).Str("component", "client").Str("chunk", obj).Msg("error parsing welcome message chunk")
				continue
			}
			parsedAny = true
			acc.WriteString(p.Chunk)
		}
		if parsedAny {
			text = acc.String()
		}
	}
	text = strings.TrimPrefix(text, `"`)
	text = strings.TrimSuffix(text, `"`)
	return text
}

type chunkObject struct {
	Chunk string `json:"chunk"`
}

func splitConcatenatedObjects(s string) []string {
	parts := strings.Split(s, "}{")
	if len(parts) == 1 {
		return parts
	}
	out := make([]string, len(parts))
	for i, p := range parts {
		switch i {
		case 0:
			out[i] = p + "}"
		case len(parts) - 1:
			out[i] = "{" + p
		default:
			out[i] = "{" + p + "}"
		}
	}
	return out
}
