package document

import "unicode/utf8"

// Chunk is a contiguous grouping of transcript segments, the unit of
// retrieval for downstream search. ChunkIDs are zero-based and contiguous
// within a document. Times are taken from the first and last grouped
// segment without re-quantization.
type Chunk struct {
	EventID    string  `json:"doc_id"`
	ChunkID    int     `json:"chunk_id"`
	Text       string  `json:"text"`
	StartTime  float64 `json:"start_time"`
	EndTime    float64 `json:"end_time"`
	SourcePath string  `json:"source_path"`
}

// ChunkPolicy bounds chunk growth. A chunk is sealed before adding a
// segment that would push its rune count over MaxChars or its duration
// (seconds) over MaxDuration. A zero bound disables that dimension.
type ChunkPolicy struct {
	MaxChars    int
	MaxDuration float64
}

// DefaultChunkPolicy matches the segment sizes observed in production
// integrated files. Neither bound is tuned; both are exposed as
// configuration.
var DefaultChunkPolicy = ChunkPolicy{MaxChars: 800, MaxDuration: 60}

// BuildChunks groups transcript segments into bounded chunks. Segments
// with empty content are skipped. The grouping is deterministic: the same
// segment sequence and policy always produce byte-identical chunks. A
// document with zero usable segments yields zero chunks.
func BuildChunks(eventID string, segments []Segment, policy ChunkPolicy) []Chunk {
	var chunks []Chunk

	var (
		open  bool
		cur   Chunk
		chars int
	)
	seal := func() {
		cur.ChunkID = len(chunks)
		chunks = append(chunks, cur)
		open = false
	}

	for _, seg := range segments {
		if seg.Content == "" {
			continue
		}
		if open {
			newChars := chars + utf8.RuneCountInString(seg.Content)
			newDur := seg.EndTime - cur.StartTime
			if (policy.MaxChars > 0 && newChars > policy.MaxChars) ||
				(policy.MaxDuration > 0 && newDur > policy.MaxDuration) {
				seal()
			}
		}
		if !open {
			cur = Chunk{
				EventID:    eventID,
				Text:       seg.Content,
				StartTime:  seg.StartTime,
				EndTime:    seg.EndTime,
				SourcePath: seg.FilePath,
			}
			chars = utf8.RuneCountInString(seg.Content)
			open = true
			continue
		}
		cur.Text += seg.Content
		cur.EndTime = seg.EndTime
		chars += utf8.RuneCountInString(seg.Content)
	}
	if open {
		seal()
	}
	return chunks
}
