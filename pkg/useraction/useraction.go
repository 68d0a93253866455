// Package useraction finds operation requests embedded in assistant
// responses. An operation is a fenced code block tagged USER_OPERATION whose
// first line is `name {json params}` and whose remaining lines are content.
package useraction

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

const Language = "USER_OPERATION"

// Operation is a single requested client-side action.
type Operation struct {
	Name    string         `json:"name"`
	Params  map[string]any `json:"params"`
	Content string         `json:"content"`
}

var headerRe = regexp.MustCompile(`^(\w+)\s*(\{.*\})?$`)

var parser = goldmark.New().Parser()

// Extract returns the operations in markdown, in document order. Blocks with
// a malformed header line are skipped.
func Extract(markdown string) []Operation {
	source := []byte(markdown)
	doc := parser.Parse(text.NewReader(source))

	var ops []Operation
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		block, ok := n.(*ast.FencedCodeBlock)
		if !ok {
			return ast.WalkContinue, nil
		}
		if !strings.EqualFold(string(block.Language(source)), Language) {
			return ast.WalkSkipChildren, nil
		}
		var body strings.Builder
		lines := block.Lines()
		for i := 0; i < lines.Len(); i++ {
			seg := lines.At(i)
			body.Write(seg.Value(source))
		}
		if op, ok := ParseBlock(body.String()); ok {
			ops = append(ops, op)
		}
		return ast.WalkSkipChildren, nil
	})
	return ops
}

// ParseBlock interprets the body of one USER_OPERATION block. Escaped line
// feeds and quotes left over from JSON transport are unescaped first.
func ParseBlock(body string) (Operation, bool) {
	body = strings.ReplaceAll(body, `\n`, "\n")
	body = strings.ReplaceAll(body, `\"`, `"`)

	lines := strings.Split(strings.TrimSpace(body), "\n")
	m := headerRe.FindStringSubmatch(strings.TrimSpace(lines[0]))
	if m == nil {
		return Operation{}, false
	}

	op := Operation{Name: m[1], Params: map[string]any{}}
	if m[2] != "" {
		if err := json.Unmarshal([]byte(m[2]), &op.Params); err != nil {
			log.Warn().Err(err).Str("component", "useraction").Str("params", m[2]).Msg("failed to parse operation params")
			op.Params = map[string]any{}
		}
	}
	if len(lines) > 1 {
		op.Content = strings.Join(lines[1:], "\n")
	}
	return op, true
}
