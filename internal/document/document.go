// Package document parses integrated program JSON files and derives the
// master record and chunk set uploaded to the object store. A "document"
// is one integrated JSON file per broadcast program: program-level
// metadata, an ordered transcript segment list, and screenshot references.
package document

import (
	"encoding/json"
	"fmt"
)

// Segment is one transcript entry from the integrated JSON. Start and end
// times are carried through as-is; the source pipeline records them in
// seconds from the start of the program.
type Segment struct {
	Content   string  `json:"content"`
	FilePath  string  `json:"file_path"`
	FileName  string  `json:"file_name"`
	StartTime float64 `json:"start_time"`
	EndTime   float64 `json:"end_time"`
}

// ScreenshotRef is a screenshot entry from the integrated JSON. FilePath
// is recorded in the capture host's naming convention and must be resolved
// to a source-store path before upload (see internal/resolve).
type ScreenshotRef struct {
	FilePath string `json:"file_path"`
	FileName string `json:"file_name"`
}

// Parsed is the decoded form of one integrated JSON document.
type Parsed struct {
	Metadata    map[string]any  `json:"program_metadata"`
	Transcripts []Segment       `json:"transcripts"`
	Screenshots []ScreenshotRef `json:"screenshots"`
}

// MasterRecord is the single full-document artifact uploaded per document.
// ImageURLs and AudioURLs are filled in by the orchestrator after sidecar
// uploads complete, so the master always reflects what actually landed.
type MasterRecord struct {
	EventID   string         `json:"doc_id"`
	Metadata  map[string]any `json:"metadata"`
	FullText  string         `json:"full_text"`
	ImageURLs []string       `json:"image_urls,omitempty"`
	AudioURLs []string       `json:"audio_urls,omitempty"`
}

// MalformedError reports a document that could not be decoded or is
// missing required structure. It marks the document failed without
// aborting the run.
type MalformedError struct {
	Reason string
	Err    error
}

func (e *MalformedError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed document: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("malformed document: %s", e.Reason)
}

func (e *MalformedError) Unwrap() error { return e.Err }

// Parse decodes an integrated JSON document. Structural failures return
// *MalformedError: invalid JSON, missing program_metadata, or a missing
// transcripts array. An empty transcripts array is valid (zero chunks).
func Parse(raw []byte) (*Parsed, error) {
	var doc struct {
		Metadata    map[string]any  `json:"program_metadata"`
		Transcripts *[]Segment      `json:"transcripts"`
		Screenshots []ScreenshotRef `json:"screenshots"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, &MalformedError{Reason: "invalid JSON", Err: err}
	}
	if doc.Metadata == nil {
		return nil, &MalformedError{Reason: "missing program_metadata"}
	}
	if doc.Transcripts == nil {
		return nil, &MalformedError{Reason: "missing transcripts"}
	}
	return &Parsed{
		Metadata:    doc.Metadata,
		Transcripts: *doc.Transcripts,
		Screenshots: doc.Screenshots,
	}, nil
}

// FullText concatenates all non-empty segment contents in transcript order.
func (p *Parsed) FullText() string {
	var out []byte
	for _, seg := range p.Transcripts {
		out = append(out, seg.Content...)
	}
	return string(out)
}

// Master builds the master record for the document under the given eventId.
func (p *Parsed) Master(eventID string) *MasterRecord {
	return &MasterRecord{
		EventID:  eventID,
		Metadata: p.Metadata,
		FullText: p.FullText(),
	}
}
