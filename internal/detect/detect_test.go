package detect

import (
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/kitsunelab/atsume/internal/fingerprint"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
}

func TestDetect_freshFolder(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b.pdf", "bee")
	writeFile(t, dir, "a.pdf", "aye")
	writeFile(t, dir, "notes.txt", "ignored")

	res, err := Detect(dir, []string{".pdf"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"a.pdf", "b.pdf"}
	if len(res.Changed) != 2 || res.Changed[0] != want[0] || res.Changed[1] != want[1] {
		t.Errorf("Changed = %v, want %v", res.Changed, want)
	}
	if !sort.StringsAreSorted(res.Changed) {
		t.Error("result should be sorted by filename")
	}
	if res.Fingerprints["a.pdf"] != fingerprint.Sum([]byte("aye")) {
		t.Errorf("fingerprint mismatch for a.pdf: %q", res.Fingerprints["a.pdf"])
	}
}

func TestDetect_unchangedExcluded(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "same.pdf", "stable")
	writeFile(t, dir, "edited.pdf", "v2")

	known := map[string]string{
		"same.pdf":   fingerprint.Sum([]byte("stable")),
		"edited.pdf": fingerprint.Sum([]byte("v1")),
	}
	res, err := Detect(dir, []string{".pdf"}, known)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Changed) != 1 || res.Changed[0] != "edited.pdf" {
		t.Errorf("Changed = %v, want [edited.pdf]", res.Changed)
	}
}

func TestDetect_deletedNotReported(t *testing.T) {
	dir := t.TempDir()
	known := map[string]string{"gone.pdf": "abc123"}
	res, err := Detect(dir, []string{".pdf"}, known)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Changed) != 0 {
		t.Errorf("deleted files should not be reported: %v", res.Changed)
	}
}

func TestDetect_caseInsensitiveExtension(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "UPPER.PDF", "shouting")
	res, err := Detect(dir, []string{".pdf"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Changed) != 1 || res.Changed[0] != "UPPER.PDF" {
		t.Errorf("Changed = %v, want [UPPER.PDF]", res.Changed)
	}
}

func TestDetect_skipsSubdirectories(t *testing.T) {
	dir := t.TempDir()
	if err := os.Mkdir(filepath.Join(dir, "sub.pdf"), 0755); err != nil {
		t.Fatal(err)
	}
	res, err := Detect(dir, []string{".pdf"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Changed) != 0 {
		t.Errorf("directories should be ignored: %v", res.Changed)
	}
}

func TestDetect_missingFolder(t *testing.T) {
	_, err := Detect(filepath.Join(t.TempDir(), "nope"), nil, nil)
	if err == nil {
		t.Error("expected error for missing folder")
	}
}

func TestExtensionAllowed(t *testing.T) {
	tests := []struct {
		ext     string
		allowed []string
		want    bool
	}{
		{".pdf", []string{".pdf", ".txt"}, true},
		{".PDF", []string{".pdf"}, true},
		{".pdf", []string{"pdf"}, true},
		{".docx", []string{".pdf"}, false},
		{"", []string{".pdf"}, false},
		{".anything", nil, true},
	}
	for _, tt := range tests {
		if got := ExtensionAllowed(tt.ext, tt.allowed); got != tt.want {
			t.Errorf("ExtensionAllowed(%q, %v) = %v, want %v", tt.ext, tt.allowed, got, tt.want)
		}
	}
}
