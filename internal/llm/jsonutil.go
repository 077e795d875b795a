package llm

import (
	"errors"
	"strings"

	"github.com/tidwall/gjson"
)

// ErrNoJSON is returned when a model answer carries no JSON object.
var ErrNoJSON = errors.New("llm: response contained no JSON object")

// ExtractJSON pulls the first JSON object out of a model answer, tolerating
// markdown fences and leading prose.
func ExtractJSON(text string) (gjson.Result, error) {
	trimmed := strings.TrimSpace(text)
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(trimmed, "```")
	trimmed = strings.TrimSpace(trimmed)

	if gjson.Valid(trimmed) {
		res := gjson.Parse(trimmed)
		if res.IsObject() {
			return res, nil
		}
	}

	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start < 0 || end <= start {
		return gjson.Result{}, ErrNoJSON
	}
	candidate := trimmed[start : end+1]
	if !gjson.Valid(candidate) {
		return gjson.Result{}, ErrNoJSON
	}
	return gjson.Parse(candidate), nil
}
