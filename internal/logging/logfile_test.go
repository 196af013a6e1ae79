package logging

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestGenerateLogFilename(t *testing.T) {
	tests := []struct {
		name     string
		time     time.Time
		expected string
	}{
		{
			name:     "basic timestamp",
			time:     time.Date(2026, 10, 19, 9, 51, 5, 123000000, time.UTC),
			expected: "sbops-20261019-095105-123.log",
		},
		{
			name:     "midnight",
			time:     time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
			expected: "sbops-20260101-000000-000.log",
		},
		{
			name:     "milliseconds truncated",
			time:     time.Date(2026, 6, 15, 12, 30, 45, 456789000, time.UTC),
			expected: "sbops-20260615-123045-456.log",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GenerateLogFilename(tt.time); got != tt.expected {
				t.Errorf("GenerateLogFilename() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestNewLogFile_Stderr(t *testing.T) {
	for _, out := range []string{"", "-"} {
		lf, err := NewLogFile(&LogConfig{Output: out, Dir: t.TempDir()})
		if err != nil {
			t.Fatalf("NewLogFile(%q) error = %v", out, err)
		}
		if lf.Path != "" {
			t.Errorf("Path should be empty for %q output, got %q", out, lf.Path)
		}
		if lf.Writer() != os.Stderr {
			t.Errorf("Writer should be os.Stderr for %q", out)
		}
		_ = lf.Close()
	}
}

func TestNewLogFile_None(t *testing.T) {
	lf, err := NewLogFile(&LogConfig{Output: "none"})
	if err != nil {
		t.Fatalf("NewLogFile() error = %v", err)
	}
	defer lf.Close()
	if lf.Path != "" || lf.Writer() == nil {
		t.Errorf("unexpected log file for none: %+v", lf)
	}
}

func TestNewLogFile_Auto(t *testing.T) {
	dir := t.TempDir()
	lf, err := NewLogFile(&LogConfig{Output: "auto", Dir: dir})
	if err != nil {
		t.Fatalf("NewLogFile() error = %v", err)
	}
	defer lf.Close()

	if filepath.Dir(lf.Path) != dir {
		t.Errorf("Path should be in dir %q, got %q", dir, lf.Path)
	}
	if _, err := os.Stat(lf.Path); err != nil {
		t.Errorf("log file was not created: %v", err)
	}
}

func TestNewLogFile_RelativePath(t *testing.T) {
	dir := t.TempDir()
	lf, err := NewLogFile(&LogConfig{Output: "deploy.log", Dir: dir})
	if err != nil {
		t.Fatalf("NewLogFile() error = %v", err)
	}
	defer lf.Close()
	if want := filepath.Join(dir, "deploy.log"); lf.Path != want {
		t.Errorf("Path = %q, want %q", lf.Path, want)
	}
}

func TestCleanupOldLogFiles(t *testing.T) {
	dir := t.TempDir()
	oldTime := time.Now().AddDate(0, 0, -10)
	newTime := time.Now().AddDate(0, 0, -3)

	write := func(name string, mt time.Time) string {
		p := filepath.Join(dir, name)
		if err := os.WriteFile(p, []byte(name), 0o644); err != nil {
			t.Fatal(err)
		}
		if err := os.Chtimes(p, mt, mt); err != nil {
			t.Fatal(err)
		}
		return p
	}
	oldFile := write("sbops-20261001-120000-000.log", oldTime)
	newFile := write("sbops-20261016-120000-000.log", newTime)
	otherFile := write("other.log", oldTime)

	if err := CleanupOldLogFiles(dir, 7); err != nil {
		t.Fatalf("CleanupOldLogFiles() error = %v", err)
	}
	if _, err := os.Stat(oldFile); !os.IsNotExist(err) {
		t.Errorf("old log file should have been deleted")
	}
	if _, err := os.Stat(newFile); err != nil {
		t.Errorf("new log file should have been kept: %v", err)
	}
	if _, err := os.Stat(otherFile); err != nil {
		t.Errorf("non-matching file should have been kept: %v", err)
	}
}

func TestCleanupOldLogFiles_NonExistentDir(t *testing.T) {
	if err := CleanupOldLogFiles("/nonexistent/path", 7); err != nil {
		t.Errorf("CleanupOldLogFiles() should not error for non-existent dir, got: %v", err)
	}
}
