// Package syncer drives the per-document sync pipeline: probe remote
// state, decide staleness, transform, and upload master, chunk, and
// sidecar artifacts. Document pipelines are independent; one document's
// failure never terminates the run.
package syncer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/tclip/ragsync/internal/config"
	"github.com/tclip/ragsync/internal/document"
	"github.com/tclip/ragsync/internal/objectstore"
	"github.com/tclip/ragsync/internal/resolve"
	"github.com/tclip/ragsync/internal/scan"
)

const jsonlContentType = "application/jsonl; charset=utf-8"

// Orchestrator owns one run's collaborators. The store is shared
// read-only across worker pipelines; the resolver is stateless.
type Orchestrator struct {
	store    objectstore.Store
	resolver *resolve.Resolver
	cfg      config.Config
}

// New builds an orchestrator. When ProcessedRoot is not configured the
// resolver is disabled and screenshot/audio sidecars are skipped with a
// per-document warning.
func New(store objectstore.Store, cfg config.Config) *Orchestrator {
	o := &Orchestrator{store: store, cfg: cfg}
	if cfg.ProcessedRoot != "" {
		o.resolver = resolve.New(cfg.ProcessedRoot)
	}
	return o
}

// Run scans the source tree and processes every discovered document
// through a bounded worker pool. Outcomes flow through a channel into the
// summary, which has a single writer. The returned error covers only
// discovery; per-document failures are recorded in the summary.
func (o *Orchestrator) Run(ctx context.Context) (*Summary, error) {
	summary := &Summary{RunID: uuid.NewString(), StartedAt: time.Now()}

	scanRes, err := scan.Run(o.cfg.SourceRoot, scan.Options{NameFilter: o.cfg.NameFilter})
	if err != nil {
		return nil, fmt.Errorf("scan source tree: %w", err)
	}
	summary.Warnings = append(summary.Warnings, scanRes.Warnings...)

	// Several quality versions of the same program share an eventId and
	// therefore the same target keys. Discovery order puts the preferred
	// version first; the rest are recorded as skipped without dispatching,
	// so no two workers ever write the same keys.
	seen := make(map[string]bool, len(scanRes.Documents))
	docs := make([]scan.Descriptor, 0, len(scanRes.Documents))
	for _, desc := range scanRes.Documents {
		if seen[desc.EventID] {
			summary.add(Outcome{
				EventID:    desc.EventID,
				SourcePath: desc.SourcePath,
				Status:     StatusSkipped,
				Reason:     "superseded by preferred version",
			})
			continue
		}
		seen[desc.EventID] = true
		docs = append(docs, desc)
	}

	log.Info().
		Str("runId", summary.RunID).
		Int("documents", len(docs)).
		Int("workers", o.cfg.Workers).
		Msg("Starting sync run")

	jobs := make(chan scan.Descriptor)
	results := make(chan Outcome)

	var wg sync.WaitGroup
	for i := 0; i < o.cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for desc := range jobs {
				results <- o.processDocument(ctx, desc)
			}
		}()
	}

	go func() {
		for _, desc := range docs {
			jobs <- desc
		}
		close(jobs)
		wg.Wait()
		close(results)
	}()

	for outcome := range results {
		summary.add(outcome)
	}

	summary.Duration = time.Since(summary.StartedAt)
	log.Info().Object("summary", summary).Msg("Sync run complete")
	return summary, nil
}

func (o *Orchestrator) masterKey(eventID string) string {
	return o.cfg.MasterPrefix + eventID + ".jsonl"
}

func (o *Orchestrator) chunkKey(eventID string) string {
	return o.cfg.ChunkPrefix + eventID + "_segments.jsonl"
}

// processDocument runs one document through probe → decide → transform →
// upload. Every error is converted into the returned outcome.
func (o *Orchestrator) processDocument(ctx context.Context, desc scan.Descriptor) Outcome {
	out := Outcome{EventID: desc.EventID, SourcePath: desc.SourcePath}
	docLog := log.With().Str("eventId", desc.EventID).Str("path", desc.SourcePath).Logger()

	masterKey := o.masterKey(desc.EventID)
	chunkKey := o.chunkKey(desc.EventID)

	// Probe both derived artifacts. An unconfirmed probe is never treated
	// as stale: skipping risks a missed update on the next run, blind
	// overwrite risks masking staleness bugs.
	masterState, err := o.store.Probe(ctx, masterKey)
	var chunkState objectstore.RemoteState
	if err == nil {
		chunkState, err = o.store.Probe(ctx, chunkKey)
	}
	if err != nil {
		docLog.Warn().Err(err).Msg("Remote state unconfirmed, refusing to upload")
		out.Status = StatusFailed
		out.Reason = fmt.Sprintf("remote state unconfirmed: %v", err)
		out.Warnings = append(out.Warnings,
			fmt.Sprintf("probe unconfirmed for %s: skipped rather than blindly overwritten", desc.EventID))
		return out
	}

	tolerance := o.cfg.StalenessTolerance()
	uploadMaster := Decide(desc.LastModified, masterState, tolerance) == Upload
	uploadChunks := Decide(desc.LastModified, chunkState, tolerance) == Upload
	if !uploadMaster && !uploadChunks {
		docLog.Debug().Msg("Remote artifacts current, skipping")
		out.Status = StatusSkipped
		out.Reason = "remote artifacts current"
		return out
	}

	raw, err := os.ReadFile(desc.SourcePath)
	if err != nil {
		out.Status = StatusFailed
		out.Reason = fmt.Sprintf("read source: %v", err)
		return out
	}

	parsed, err := document.Parse(raw)
	if err != nil {
		docLog.Warn().Err(err).Msg("Document failed to parse")
		out.Status = StatusFailed
		out.Reason = err.Error()
		return out
	}

	policy := document.ChunkPolicy{
		MaxChars:    o.cfg.ChunkMaxChars,
		MaxDuration: o.cfg.ChunkMaxDurationSec,
	}
	chunks := document.BuildChunks(desc.EventID, parsed.Transcripts, policy)
	master := parsed.Master(desc.EventID)

	// The three artifact classes upload and fail independently.
	var failures []string
	anySuccess := false

	imageURLs, audioURLs := o.uploadSidecars(ctx, desc, parsed, &out, &failures)
	if out.Images > 0 || out.Audio > 0 {
		anySuccess = true
	}
	master.ImageURLs = imageURLs
	master.AudioURLs = audioURLs

	if uploadMaster {
		body, err := document.MarshalJSONL([]*document.MasterRecord{master})
		if err != nil {
			failures = append(failures, fmt.Sprintf("master: %v", err))
		} else if err := o.putWithRetry(ctx, masterKey, body, jsonlContentType); err != nil {
			failures = append(failures, fmt.Sprintf("master: %v", err))
		} else {
			anySuccess = true
			docLog.Info().Str("key", masterKey).Msg("Master record uploaded")
		}
	}

	if uploadChunks {
		body, err := document.MarshalJSONL(chunks)
		if err != nil {
			failures = append(failures, fmt.Sprintf("chunks: %v", err))
		} else if err := o.putWithRetry(ctx, chunkKey, body, jsonlContentType); err != nil {
			failures = append(failures, fmt.Sprintf("chunks: %v", err))
		} else {
			anySuccess = true
			out.Chunks = len(chunks)
			docLog.Info().Str("key", chunkKey).Int("chunks", len(chunks)).Msg("Chunk set uploaded")
		}
	}

	switch {
	case len(failures) == 0:
		out.Status = StatusUploaded
	case anySuccess:
		out.Status = StatusPartial
		out.Reason = strings.Join(failures, "; ")
	default:
		out.Status = StatusFailed
		out.Reason = strings.Join(failures, "; ")
	}
	return out
}

// uploadSidecars resolves and uploads the document's screenshots and
// processed audio files. Unresolvable references become outcome warnings;
// upload failures are appended to failures. Returns the store URLs of
// everything that landed, for master-record annotation.
func (o *Orchestrator) uploadSidecars(ctx context.Context, desc scan.Descriptor, parsed *document.Parsed, out *Outcome, failures *[]string) (imageURLs, audioURLs []string) {
	if o.resolver == nil {
		if len(parsed.Screenshots) > 0 {
			out.Warnings = append(out.Warnings,
				fmt.Sprintf("%s: processed_root not configured, skipping %d screenshots", desc.EventID, len(parsed.Screenshots)))
		}
		return nil, nil
	}

	for _, ref := range parsed.Screenshots {
		if ref.FilePath == "" && ref.FileName == "" {
			continue
		}
		path, err := o.resolver.Screenshot(ref)
		if err != nil {
			out.Warnings = append(out.Warnings, fmt.Sprintf("%s: %v", desc.EventID, err))
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			*failures = append(*failures, fmt.Sprintf("image %s: %v", filepath.Base(path), err))
			continue
		}
		key := o.cfg.ImagePrefix + desc.EventID + "/" + filepath.Base(path)
		if err := o.putWithRetry(ctx, key, data, "image/jpeg"); err != nil {
			*failures = append(*failures, fmt.Sprintf("image %s: %v", filepath.Base(path), err))
			continue
		}
		imageURLs = append(imageURLs, o.store.URL(key))
		out.Images++
	}

	channel, date, ok := document.ChannelDate(filepath.Base(desc.SourcePath))
	if !ok {
		return imageURLs, nil
	}
	for _, path := range o.resolver.AudioFiles(channel, date) {
		data, err := os.ReadFile(path)
		if err != nil {
			*failures = append(*failures, fmt.Sprintf("audio %s: %v", filepath.Base(path), err))
			continue
		}
		key := o.cfg.AudioPrefix + desc.EventID + "/" + filepath.Base(path)
		if err := o.putWithRetry(ctx, key, data, resolve.AudioContentType(path)); err != nil {
			*failures = append(*failures, fmt.Sprintf("audio %s: %v", filepath.Base(path), err))
			continue
		}
		audioURLs = append(audioURLs, o.store.URL(key))
		out.Audio++
	}
	return imageURLs, audioURLs
}

// putWithRetry uploads with bounded exponential backoff on transient
// store errors. Authorization errors and retry-budget exhaustion return
// immediately and become part of the document outcome.
func (o *Orchestrator) putWithRetry(ctx context.Context, key string, body []byte, contentType string) error {
	backoff := 500 * time.Millisecond
	for attempt := 0; ; attempt++ {
		err := o.store.Put(ctx, key, body, contentType)
		if err == nil {
			return nil
		}
		if !objectstore.IsRetryable(err) || attempt >= o.cfg.RetryMax {
			return err
		}
		log.Warn().Err(err).Str("key", key).Int("attempt", attempt+1).Dur("backoff", backoff).Msg("Transient upload failure, retrying")
		select {
		case <-ctx.Done():
			return err
		case <-time.After(backoff):
		}
		backoff *= 2
	}
}
