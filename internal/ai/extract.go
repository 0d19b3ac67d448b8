package ai

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/rotisserie/eris"
)

var ErrNoJSON = eris.New("no json object in reply")

var fencedJSON = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")

// ExtractJSON decodes the first JSON object found in text into v. It tries a
// fenced code block first, then the span between the outermost braces.
func ExtractJSON(text string, v any) error {
	for _, candidate := range jsonCandidates(text) {
		if err := json.Unmarshal([]byte(candidate), v); err == nil {
			return nil
		}
	}
	return ErrNoJSON
}

func jsonCandidates(text string) []string {
	var out []string
	if m := fencedJSON.FindStringSubmatch(text); m != nil {
		out = append(out, strings.TrimSpace(m[1]))
	}
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		out = append(out, text[start:end+1])
	}
	return out
}

// RequireFields checks that every key is present in the decoded object.
func RequireFields(obj map[string]any, keys ...string) error {
	var missing []string
	for _, k := range keys {
		if _, ok := obj[k]; !ok {
			missing = append(missing, k)
		}
	}
	if len(missing) > 0 {
		return eris.Errorf("reply missing fields: %s", strings.Join(missing, ", "))
	}
	return nil
}

// ExtractObject is ExtractJSON into a map followed by RequireFields. It
// returns the raw object bytes for storage.
func ExtractObject(text string, keys ...string) (json.RawMessage, map[string]any, error) {
	var obj map[string]any
	if err := ExtractJSON(text, &obj); err != nil {
		return nil, nil, err
	}
	if err := RequireFields(obj, keys...); err != nil {
		return nil, nil, err
	}
	raw, err := json.Marshal(obj)
	if err != nil {
		return nil, nil, eris.Wrap(err, "re-encode reply")
	}
	return raw, obj, nil
}
