package document

import (
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// Integrated file names follow the capture pipeline's convention:
//
//	NHKG_TKY_20251015_0035-0125_AkxAQAELAAM_integrated_q1.00.json
//
// The token before "_integrated" is the event identifier used as the key
// root for every derived artifact. The optional q-suffix is a quality
// version; several versions of the same program may coexist on the source
// store.
var (
	versionRe     = regexp.MustCompile(`(?i)q(\d+\.\d+)`)
	versionStrip  = regexp.MustCompile(`(?i)_q\d+\.\d+`)
	jsonExtStrip  = regexp.MustCompile(`(?i)\.json$`)
	channelDateRe = regexp.MustCompile(`([A-Z]+_[A-Z]+)_(\d{8})`)
)

// Version extracts the quality version number from a file name.
// Returns false when the name carries no q-suffix.
func Version(filename string) (float64, bool) {
	m := versionRe.FindStringSubmatch(filename)
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// BaseName strips the version suffix and .json extension from a file
// name. Files sharing a base name are versions of the same program.
func BaseName(filename string) string {
	base := versionStrip.ReplaceAllString(filename, "")
	return jsonExtStrip.ReplaceAllString(base, "")
}

// EventID derives the stable document identifier from a file path. For
// conventional names this is the token before "_integrated"; otherwise
// the whole version-stripped base name is used so every file still maps
// to a deterministic key root.
func EventID(path string) string {
	base := BaseName(filepath.Base(path))
	if idx := strings.LastIndex(base, "_integrated"); idx > 0 {
		head := base[:idx]
		if cut := strings.LastIndex(head, "_"); cut >= 0 && cut+1 < len(head) {
			return head[cut+1:]
		}
		return head
	}
	return base
}

// ChannelDate extracts the channel code and broadcast date from a file
// name, e.g. "NHKG_TKY_20251015_..." yields ("NHKG-TKY", "20251015").
// The channel code uses the processed store's hyphenated folder naming.
// Returns false when the name does not carry both tokens.
func ChannelDate(filename string) (channel, date string, ok bool) {
	m := channelDateRe.FindStringSubmatch(filename)
	if m == nil {
		return "", "", false
	}
	return strings.ReplaceAll(m[1], "_", "-"), m[2], true
}
