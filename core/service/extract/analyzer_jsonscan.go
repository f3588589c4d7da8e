package extract

import (
	"errors"
	"regexp"
	"strings"

	"github.com/goccy/go-json"
)

// Model output is untrusted: it is frequently wrapped in prose or code
// fences. The cleaner plus the balanced-region scan below are the defense
// against that.

var (
	// ErrNoJSON means no parsable JSON region was found in the text.
	ErrNoJSON = errors.New("no valid JSON found in model output")
	// ErrNotAList means the output parsed, but not to a JSON array (or a
	// single object that could be wrapped into one).
	ErrNotAList = errors.New("model returned JSON that is not an array")
)

var (
	fenceRe    = regexp.MustCompile("(?i)```(?:json)?")
	blankRunRe = regexp.MustCompile(`\n{2,}`)
)

// CleanResponse strips code-fence markers and stray backticks, normalizes
// line endings and collapses redundant blank lines.
func CleanResponse(raw string) string {
	cleaned := fenceRe.ReplaceAllString(raw, "")
	cleaned = strings.ReplaceAll(cleaned, "```", "")
	cleaned = strings.ReplaceAll(cleaned, "\r\n", "\n")
	cleaned = strings.Trim(cleaned, "` \n\t")
	cleaned = blankRunRe.ReplaceAllString(cleaned, "\n")
	return strings.TrimSpace(cleaned)
}

// ParseJSON recovers a JSON value from free-form text: it tries a
// whole-string parse first, then scans for the first balanced bracket or
// brace region and parses that substring.
func ParseJSON(text string) (any, error) {
	text = strings.TrimSpace(text)

	var value any
	if err := json.Unmarshal([]byte(text), &value); err == nil {
		return value, nil
	}

	for _, pair := range [][2]byte{{'[', ']'}, {'{', '}'}} {
		openCh, closeCh := pair[0], pair[1]
		start := strings.IndexByte(text, openCh)
		if start == -1 {
			continue
		}
		depth := 0
		for i := start; i < len(text); i++ {
			switch text[i] {
			case openCh:
				depth++
			case closeCh:
				depth--
				if depth == 0 {
					candidate := text[start : i+1]
					if err := json.Unmarshal([]byte(candidate), &value); err == nil {
						return value, nil
					}
					// Nested garbage; try the other bracket kind.
					i = len(text)
				}
			}
		}
	}

	return nil, ErrNoJSON
}

// ParseItemList cleans the raw model response and normalizes the parse
// result to a list: a single object is wrapped, anything else fails.
func ParseItemList(raw string) ([]map[string]any, error) {
	value, err := ParseJSON(CleanResponse(raw))
	if err != nil {
		return nil, err
	}

	switch v := value.(type) {
	case []any:
		items := make([]map[string]any, 0, len(v))
		for _, entry := range v {
			obj, ok := entry.(map[string]any)
			if !ok {
				return nil, ErrNotAList
			}
			items = append(items, obj)
		}
		return items, nil
	case map[string]any:
		return []map[string]any{v}, nil
	default:
		return nil, ErrNotAList
	}
}
