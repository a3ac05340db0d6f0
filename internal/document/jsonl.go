package document

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// MarshalJSONL encodes records as newline-delimited JSON, one single-line
// record per line. HTML escaping is disabled so Japanese text and URLs
// round-trip byte-exactly; the layout is a bit-exact contract with the
// downstream search collaborator.
func MarshalJSONL[T any](records []T) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	for i, r := range records {
		if err := enc.Encode(r); err != nil {
			return nil, fmt.Errorf("encode record %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}
