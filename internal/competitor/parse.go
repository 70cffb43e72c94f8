package competitor

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rotisserie/eris"

	"github.com/sells-group/competitor-intel/internal/model"
)

// ExtractJSONArray returns the text from the first '[' through the last ']'.
func ExtractJSONArray(text string) (string, error) {
	start := strings.IndexByte(text, '[')
	end := strings.LastIndexByte(text, ']')
	if start == -1 || end == -1 || end < start {
		return "", &model.DiscoveryError{Reason: model.DiscoveryReasonNoJSON}
	}
	return text[start : end+1], nil
}

// ParseCandidates extracts, decodes, and validates the candidate array in
// raw model text. Any bad element fails the whole response.
func ParseCandidates(text string, v *validator.Validate) ([]model.Candidate, error) {
	segment, err := ExtractJSONArray(text)
	if err != nil {
		return nil, err
	}

	var payload any
	if err := json.Unmarshal([]byte(segment), &payload); err != nil {
		return nil, &model.DiscoveryError{Reason: model.DiscoveryReasonParse, Err: err}
	}
	if _, ok := payload.([]any); !ok {
		return nil, &model.DiscoveryError{Reason: model.DiscoveryReasonNotArray}
	}

	var elems []json.RawMessage
	if err := json.Unmarshal([]byte(segment), &elems); err != nil {
		return nil, &model.DiscoveryError{Reason: model.DiscoveryReasonParse, Err: err}
	}
	if len(elems) == 0 {
		return nil, &model.DiscoveryError{Reason: model.DiscoveryReasonEmpty}
	}

	out := make([]model.Candidate, 0, len(elems))
	for i, raw := range elems {
		c, err := decodeCandidate(raw)
		if err == nil {
			err = v.Struct(c)
		}
		if err != nil {
			return nil, &model.DiscoveryError{
				Reason: model.DiscoveryReasonCandidate,
				Err:    eris.Wrap(err, fmt.Sprintf("element %d", i)),
			}
		}
		out = append(out, c)
	}
	return out, nil
}

func decodeCandidate(raw json.RawMessage) (model.Candidate, error) {
	var c model.Candidate
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return c, eris.New("not an object")
	}
	if err := json.Unmarshal(trimmed, &c); err != nil {
		return c, err
	}
	c.Name = strings.TrimSpace(c.Name)
	c.URL = strings.TrimSpace(c.URL)
	c.Normalize()
	return c, nil
}
