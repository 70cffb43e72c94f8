package enrich

import (
	"bytes"
	"encoding/json"

	"github.com/sells-group/competitor-intel/internal/model"
)

// ParseResults normalizes a raw search payload into snippets. Accepted
// shapes are a JSON string holding a list, a list of JSON-encoded strings,
// and a list of {url, content} records. Entries that fail to decode are
// dropped; a payload of any other shape yields an empty slice.
func ParseResults(raw json.RawMessage) []model.SearchSnippet {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return []model.SearchSnippet{}
	}

	if raw[0] == '"' {
		var inner string
		if err := json.Unmarshal(raw, &inner); err != nil {
			return []model.SearchSnippet{}
		}
		raw = bytes.TrimSpace([]byte(inner))
	}

	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return []model.SearchSnippet{}
	}

	out := make([]model.SearchSnippet, 0, len(items))
	for _, item := range items {
		if s, ok := decodeItem(item); ok {
			out = append(out, s)
		}
	}
	return out
}

// decodeItem accepts either a record or a string containing one.
func decodeItem(item json.RawMessage) (model.SearchSnippet, bool) {
	item = bytes.TrimSpace(item)
	if len(item) > 0 && item[0] == '"' {
		var s string
		if err := json.Unmarshal(item, &s); err != nil {
			return model.SearchSnippet{}, false
		}
		item = []byte(s)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(item, &fields); err != nil {
		return model.SearchSnippet{}, false
	}

	var snippet model.SearchSnippet
	rawURL, okURL := fields["url"]
	rawContent, okContent := fields["content"]
	if !okURL || !okContent {
		return model.SearchSnippet{}, false
	}
	if json.Unmarshal(rawURL, &snippet.URL) != nil || json.Unmarshal(rawContent, &snippet.Content) != nil {
		return model.SearchSnippet{}, false
	}
	return snippet, true
}
