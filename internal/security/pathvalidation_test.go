package security

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestValidatePathWithinDirectory(t *testing.T) {
	tmpDir := t.TempDir()
	outDir := filepath.Join(tmpDir, "out")
	elsewhere := filepath.Join(tmpDir, "elsewhere")
	for _, d := range []string{outDir, elsewhere} {
		if err := os.MkdirAll(d, 0755); err != nil {
			t.Fatalf("mkdir %s: %v", d, err)
		}
	}
	link := filepath.Join(outDir, "link")
	if err := os.Symlink(elsewhere, link); err != nil {
		t.Fatalf("Failed to create symlink: %v", err)
	}

	tests := []struct {
		name      string
		filePath  string
		wantError bool
	}{
		{"new file in directory", filepath.Join(outDir, "hits.csv"), false},
		{"new file in missing subdirectory", filepath.Join(outDir, "run1", "hits.csv"), false},
		{"dot-dot escape", filepath.Join(outDir, "..", "elsewhere", "hits.csv"), true},
		{"absolute path outside", "/etc/passwd", true},
		{"new file behind symlink", filepath.Join(link, "hits.csv"), true},
		{"symlink itself", link, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePathWithinDirectory(tt.filePath, outDir)
			if (err != nil) != tt.wantError {
				t.Errorf("ValidatePathWithinDirectory(%q) error = %v, wantError %v", tt.filePath, err, tt.wantError)
			}
		})
	}
}

func TestValidateOutputPath(t *testing.T) {
	if err := ValidateOutputPath(filepath.Join(t.TempDir(), "measurements.jsonl")); err != nil {
		t.Errorf("temp dir path rejected: %v", err)
	}
	if err := ValidateOutputPath("pads.png"); err != nil {
		t.Errorf("relative path in working directory rejected: %v", err)
	}
	if err := ValidateOutputPath("/etc/mtpc.db"); err == nil {
		t.Error("expected /etc path to be rejected")
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"mtpc.db", "mtpc.db"},
		{"run 12/plane:3", "run_12_plane_3"},
		{"..hidden..", "hidden"},
		{"", "unknown"},
		{"///", "unknown"},
		{"a  b", "a_b"},
	}
	for _, tt := range tests {
		if got := SanitizeFilename(tt.in); got != tt.want {
			t.Errorf("SanitizeFilename(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
	if got := SanitizeFilename(strings.Repeat("x", 500)); len(got) != 128 {
		t.Errorf("expected 128 byte cap, got %d", len(got))
	}
}
