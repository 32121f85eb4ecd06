package analytics

import (
	"encoding/json"

	"github.com/halosight/presence-cli/internal/model"
)

// ExtractCitations flattens the citation payloads of all records into a
// single source list. Records contribute regardless of status, nothing
// is deduplicated (repetition is signal for the distribution analysis),
// and a malformed payload drops only its own record's citations.
func ExtractCitations(records []model.QueryRecord) []SourceRef {
	var refs []SourceRef
	for i := range records {
		refs = append(refs, decodeCitations(records[i].Citations)...)
	}
	return refs
}

// decodeCitations normalizes one record's citation payload. The stored
// value is a JSON array, or a JSON string wrapping one when a platform
// client double-encodes. Elements are bare URL strings or objects with
// url/source/title/snippet fields, where source stands in for a missing
// url.
func decodeCitations(raw json.RawMessage) []SourceRef {
	if len(raw) == 0 {
		return nil
	}

	payload := []byte(raw)
	var encoded string
	if err := json.Unmarshal(payload, &encoded); err == nil {
		payload = []byte(encoded)
	}

	var elements []json.RawMessage
	if err := json.Unmarshal(payload, &elements); err != nil {
		return nil
	}

	var refs []SourceRef
	for _, el := range elements {
		var s string
		if err := json.Unmarshal(el, &s); err == nil {
			if s != "" {
				refs = append(refs, SourceRef{URL: s})
			}
			continue
		}

		var c model.Citation
		if err := json.Unmarshal(el, &c); err != nil {
			continue
		}
		url := c.URL
		if url == "" {
			url = c.Source
		}
		if url == "" {
			continue
		}
		refs = append(refs, SourceRef{URL: url, Title: c.Title})
	}
	return refs
}
