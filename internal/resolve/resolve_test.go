package resolve

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/tclip/ragsync/internal/document"
)

func writeFile(t *testing.T, path string) string {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

const smbPath = "/run/user/1000/gvfs/smb-share:server=nas.local,share=processed/NHKG-TKY/20251015AM/screenshot/NHKG-TKY-20251015-003534-0001.jpeg"

func TestScreenshotFromSmbPath(t *testing.T) {
	root := t.TempDir()
	want := writeFile(t, filepath.Join(root, "NHKG-TKY", "20251015AM", "screenshot", "NHKG-TKY-20251015-003534-0001.jpeg"))

	r := New(root)
	got, err := r.Screenshot(document.ScreenshotRef{FilePath: smbPath, FileName: "NHKG-TKY-20251015-003534-0001.jpeg"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != want {
		t.Errorf("resolved %q, want %q", got, want)
	}
}

func TestScreenshotPluralFolderVariant(t *testing.T) {
	root := t.TempDir()
	// Only the plural "screenshots" folder exists; the singular candidate
	// is tried first and the plural variant picked up second.
	want := writeFile(t, filepath.Join(root, "NHKG-TKY", "20251015AM", "screenshots", "NHKG-TKY-20251015-003534-0001.jpeg"))

	r := New(root)
	got, err := r.Screenshot(document.ScreenshotRef{FilePath: smbPath})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != want {
		t.Errorf("resolved %q, want %q", got, want)
	}
}

func TestScreenshotFilenameFallback(t *testing.T) {
	root := t.TempDir()
	// Unparseable embedded path: channel and date come from the file
	// name, and the PM day-suffix variant is discovered.
	want := writeFile(t, filepath.Join(root, "NHKG-TKY", "20251015PM", "screenshot", "NHKG-TKY-20251015-213000-0002.jpeg"))

	r := New(root)
	got, err := r.Screenshot(document.ScreenshotRef{
		FilePath: "/tmp/local/NHKG-TKY-20251015-213000-0002.jpeg",
		FileName: "NHKG-TKY-20251015-213000-0002.jpeg",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != want {
		t.Errorf("resolved %q, want %q", got, want)
	}
}

func TestScreenshotNotFound(t *testing.T) {
	r := New(t.TempDir())
	_, err := r.Screenshot(document.ScreenshotRef{FilePath: smbPath, FileName: "NHKG-TKY-20251015-003534-0001.jpeg"})

	var notFound *AssetNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected AssetNotFoundError, got %v", err)
	}
	if len(notFound.Candidates) == 0 {
		t.Error("error should carry the candidate paths that were tried")
	}
}

func TestAudioFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "NHKG-TKY", "20251015AM", "audio", "part1.mp3"))
	writeFile(t, filepath.Join(root, "NHKG-TKY", "20251015AM", "audio", "part2.wav"))
	writeFile(t, filepath.Join(root, "NHKG-TKY", "20251015AM", "audio", "notes.txt")) // not audio

	r := New(root)
	files := r.AudioFiles("NHKG-TKY", "20251015")
	if len(files) != 2 {
		t.Fatalf("expected 2 audio files, got %d: %v", len(files), files)
	}
}

func TestAudioFilesMissingDirectory(t *testing.T) {
	r := New(t.TempDir())
	if files := r.AudioFiles("NHKG-TKY", "20251015"); files != nil {
		t.Errorf("expected nil for missing audio directory, got %v", files)
	}
}

func TestAudioContentType(t *testing.T) {
	cases := map[string]string{
		"a.mp3":  "audio/mpeg",
		"b.WAV":  "audio/wav",
		"c.flac": "audio/flac",
		"d.bin":  "audio/mpeg",
	}
	for name, want := range cases {
		if got := AudioContentType(name); got != want {
			t.Errorf("AudioContentType(%q) = %q, want %q", name, got, want)
		}
	}
}
