// Package scan discovers candidate integrated JSON documents on the
// source file store. The walk is complete (every matching file visited
// once) and tolerant: inaccessible subtrees are recorded as warnings and
// skipped, never aborting discovery.
package scan

import (
	"fmt"
	"io/fs"
	"math"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/tclip/ragsync/internal/document"
)

// Descriptor identifies one candidate document found during discovery.
type Descriptor struct {
	SourcePath   string
	EventID      string
	LastModified int64 // Unix seconds of the source file's mtime
}

// Options configures discovery.
type Options struct {
	// NameFilter is the substring a file name must contain to be a
	// candidate. Only .json files are considered regardless of filter.
	NameFilter string
}

// DefaultNameFilter matches the integrated-file naming convention.
const DefaultNameFilter = "integrated"

// Result carries the discovered descriptors plus any subtree warnings.
type Result struct {
	Documents []Descriptor
	Warnings  []string
}

// Run walks the tree under root and returns every matching document in
// version-priority order. filepath.WalkDir does not follow directory
// symlinks, so traversal depth is bounded by the physical tree.
func Run(root string, opts Options) (*Result, error) {
	filter := strings.ToLower(opts.NameFilter)
	if filter == "" {
		filter = DefaultNameFilter
	}

	log.Info().Str("root", root).Str("filter", filter).Msg("Scanning source tree")

	res := &Result{}
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			warning := fmt.Sprintf("inaccessible: %s: %v", path, err)
			log.Warn().Err(err).Str("path", path).Msg("Subtree inaccessible, skipping")
			res.Warnings = append(res.Warnings, warning)
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		name := d.Name()
		if !strings.EqualFold(filepath.Ext(name), ".json") {
			return nil
		}
		if !strings.Contains(strings.ToLower(name), filter) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			warning := fmt.Sprintf("stat failed: %s: %v", path, err)
			log.Warn().Err(err).Str("path", path).Msg("Failed to stat candidate, skipping")
			res.Warnings = append(res.Warnings, warning)
			return nil
		}
		res.Documents = append(res.Documents, Descriptor{
			SourcePath:   path,
			EventID:      document.EventID(path),
			LastModified: info.ModTime().Unix(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}

	res.Documents = prioritizeVersions(res.Documents)

	log.Info().
		Int("documents", len(res.Documents)).
		Int("warnings", len(res.Warnings)).
		Str("root", root).
		Msg("Scan complete")
	return res, nil
}

// prioritizeVersions orders documents so that, among files sharing a base
// name, the version closest to q1.00 comes first. Files without a version
// suffix are treated as version 0. Group order follows discovery order.
func prioritizeVersions(docs []Descriptor) []Descriptor {
	type versioned struct {
		desc Descriptor
		dist float64
	}
	groups := make(map[string][]versioned)
	var order []string

	for _, d := range docs {
		name := filepath.Base(d.SourcePath)
		base := document.BaseName(name)
		v, _ := document.Version(name)
		if _, seen := groups[base]; !seen {
			order = append(order, base)
		}
		groups[base] = append(groups[base], versioned{desc: d, dist: math.Abs(1.00 - v)})
	}

	out := make([]Descriptor, 0, len(docs))
	for _, base := range order {
		group := groups[base]
		sort.SliceStable(group, func(i, j int) bool { return group[i].dist < group[j].dist })
		for _, v := range group {
			out = append(out, v.desc)
		}
	}
	return out
}
