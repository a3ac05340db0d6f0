package syncer

import (
	"time"

	"github.com/rs/zerolog"
)

// Document outcome statuses. A document is partially uploaded when at
// least one artifact class (master, chunks, images, audio) landed and at
// least one failed; classes never block or roll back each other.
const (
	StatusUploaded = "uploaded"
	StatusSkipped  = "skipped"
	StatusFailed   = "failed"
	StatusPartial  = "partially_uploaded"
)

// Outcome records how one document's pipeline ended. Outcomes are the
// only state that outlives a run.
type Outcome struct {
	EventID    string   `json:"event_id"`
	SourcePath string   `json:"source_path"`
	Status     string   `json:"status"`
	Reason     string   `json:"reason,omitempty"`
	Chunks     int      `json:"chunks_uploaded"`
	Images     int      `json:"images_uploaded"`
	Audio      int      `json:"audio_uploaded"`
	Warnings   []string `json:"warnings,omitempty"`
}

// Summary aggregates every document outcome of one run plus discovery and
// resolution warnings.
type Summary struct {
	RunID     string        `json:"run_id"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
	Uploaded  int           `json:"uploaded"`
	Skipped   int           `json:"skipped"`
	Failed    int           `json:"failed"`
	Partial   int           `json:"partially_uploaded"`
	Outcomes  []Outcome     `json:"outcomes"`
	Warnings  []string      `json:"warnings,omitempty"`
}

// add records one outcome. Only the run collector goroutine calls this;
// worker pipelines hand outcomes over a channel.
func (s *Summary) add(o Outcome) {
	s.Outcomes = append(s.Outcomes, o)
	s.Warnings = append(s.Warnings, o.Warnings...)
	switch o.Status {
	case StatusUploaded:
		s.Uploaded++
	case StatusSkipped:
		s.Skipped++
	case StatusPartial:
		s.Partial++
	default:
		s.Failed++
	}
}

// Total returns the number of documents processed.
func (s *Summary) Total() int { return len(s.Outcomes) }

// MarshalZerologObject lets a summary be logged as one structured event.
func (s *Summary) MarshalZerologObject(e *zerolog.Event) {
	e.Str("runId", s.RunID).
		Int("total", s.Total()).
		Int("uploaded", s.Uploaded).
		Int("skipped", s.Skipped).
		Int("partial", s.Partial).
		Int("failed", s.Failed).
		Int("warnings", len(s.Warnings)).
		Dur("duration", s.Duration)
}
