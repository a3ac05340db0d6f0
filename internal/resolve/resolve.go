// Package resolve maps asset references recorded by the capture host into
// paths on the source file store. Screenshot paths inside integrated JSON
// files use the capture host's gvfs/smb naming; the processed store mounts
// the same share under a plain directory root, with a known
// singular/plural folder-naming variant and optional AM/PM day suffixes.
package resolve

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/tclip/ragsync/internal/document"
)

// smbShareRe extracts channel, day folder, and file name from a capture
// host path such as:
//
//	/run/user/1000/gvfs/smb-share:server=nas.local,share=processed/NHKG-TKY/20251015AM/screenshot/frame.jpeg
var smbShareRe = regexp.MustCompile(`/share=processed/([^/]+)/([^/]+)/(?:screenshot|screenshots)/([^/]+)$`)

// fileChannelDateRe recovers channel and date from a screenshot file name
// such as "NHKG-TKY-20251015-003534-0001.jpeg" when the embedded path
// cannot be parsed.
var fileChannelDateRe = regexp.MustCompile(`([A-Z]+-[A-Z]+)-(\d{8})`)

// Ordered candidate templates. The folder-name variant and day suffix are
// environment-specific conventions on the processed store, not a general
// algorithm; extend these lists rather than the resolution logic.
var (
	screenshotFolders = []string{"screenshot", "screenshots"}
	daySuffixes       = []string{"", "AM", "PM"}
)

// AssetNotFoundError reports a screenshot reference with no existing
// candidate path. Non-fatal: the image is skipped, the document proceeds.
type AssetNotFoundError struct {
	Ref        string
	Candidates []string
}

func (e *AssetNotFoundError) Error() string {
	return fmt.Sprintf("asset not found: %s (tried %d candidates)", e.Ref, len(e.Candidates))
}

// Resolver maps asset references onto the processed store root.
type Resolver struct {
	processedRoot string
}

// New creates a Resolver rooted at the processed store mount point.
func New(processedRoot string) *Resolver {
	return &Resolver{processedRoot: processedRoot}
}

// Screenshot resolves a screenshot reference to an existing path on the
// processed store. Candidates are tried in priority order; the first that
// exists wins. Returns *AssetNotFoundError when none exist.
func (r *Resolver) Screenshot(ref document.ScreenshotRef) (string, error) {
	candidates := r.screenshotCandidates(ref)
	for _, path := range candidates {
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, nil
		}
	}
	return "", &AssetNotFoundError{Ref: ref.FilePath, Candidates: candidates}
}

// screenshotCandidates builds the ordered candidate list for a reference.
// A parseable smb path pins the day folder exactly; otherwise channel and
// date are recovered from the file name and all day-suffix variants are
// tried.
func (r *Resolver) screenshotCandidates(ref document.ScreenshotRef) []string {
	filename := ref.FileName
	if filename == "" {
		filename = filepath.Base(ref.FilePath)
	}

	var candidates []string
	if m := smbShareRe.FindStringSubmatch(ref.FilePath); m != nil {
		channel, day := m[1], m[2]
		for _, folder := range screenshotFolders {
			candidates = append(candidates, filepath.Join(r.processedRoot, channel, day, folder, m[3]))
		}
		return candidates
	}

	m := fileChannelDateRe.FindStringSubmatch(filename)
	if m == nil {
		return nil
	}
	channel, date := m[1], m[2]
	for _, suffix := range daySuffixes {
		for _, folder := range screenshotFolders {
			candidates = append(candidates, filepath.Join(r.processedRoot, channel, date+suffix, folder, filename))
		}
	}
	return candidates
}

// audioExts are the sidecar audio formats produced by the capture
// pipeline, mapped to upload content types.
var audioExts = map[string]string{
	".mp3":  "audio/mpeg",
	".wav":  "audio/wav",
	".m4a":  "audio/mp4",
	".aac":  "audio/aac",
	".ogg":  "audio/ogg",
	".flac": "audio/flac",
}

// AudioContentType returns the upload content type for an audio file
// name, defaulting to audio/mpeg for unknown extensions.
func AudioContentType(filename string) string {
	if ct, ok := audioExts[strings.ToLower(filepath.Ext(filename))]; ok {
		return ct
	}
	return "audio/mpeg"
}

// AudioFiles locates the document's processed audio directory (trying the
// plain date folder, then AM/PM variants) and returns every audio file
// under it. A missing audio directory is normal and returns nil.
func (r *Resolver) AudioFiles(channel, date string) []string {
	var dir string
	for _, suffix := range daySuffixes {
		candidate := filepath.Join(r.processedRoot, channel, date+suffix, "audio")
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			dir = candidate
			break
		}
	}
	if dir == "" {
		log.Debug().Str("channel", channel).Str("date", date).Msg("No audio directory for document")
		return nil
	}

	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			log.Warn().Err(err).Str("path", path).Msg("Error walking audio directory, skipping")
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if _, ok := audioExts[strings.ToLower(filepath.Ext(d.Name()))]; ok {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		log.Warn().Err(err).Str("dir", dir).Msg("Audio directory walk failed")
	}
	return files
}
