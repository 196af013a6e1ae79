package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// LogFilePrefix is the file name prefix of generated log files.
const LogFilePrefix = "sbops-"

// LogConfig holds configuration for the optional log file sink.
type LogConfig struct {
	Output        string // Path, "-" for stderr, "none" to disable, "auto" for a generated file in Dir
	Dir           string // Log directory used by "auto" and relative paths
	RetentionDays int    // Days to retain generated files (0 keeps everything)
}

// LogFile manages a log file lifecycle.
type LogFile struct {
	Path   string // empty unless a file was opened
	file   *os.File
	writer io.Writer
}

// NewLogFile opens the log sink described by cfg.
//
//   - "" or "-": stderr
//   - "none":    io.Discard
//   - "auto":    <Dir>/sbops-YYYYMMDD-HHMMSS-sss.log
//   - path:      absolute, or relative to Dir
func NewLogFile(cfg *LogConfig) (*LogFile, error) {
	if cfg == nil {
		cfg = &LogConfig{}
	}
	lf := &LogFile{}

	switch strings.ToLower(cfg.Output) {
	case "", "-":
		lf.writer = os.Stderr
		return lf, nil
	case "none":
		lf.writer = io.Discard
		return lf, nil
	case "auto":
		lf.Path = filepath.Join(cfg.Dir, GenerateLogFilename(time.Now().UTC()))
	default:
		if filepath.IsAbs(cfg.Output) || cfg.Dir == "" {
			lf.Path = cfg.Output
		} else {
			lf.Path = filepath.Join(cfg.Dir, cfg.Output)
		}
	}

	dir := filepath.Dir(lf.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating log directory %q: %w", dir, err)
	}
	f, err := os.OpenFile(lf.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening log file %q: %w", lf.Path, err)
	}
	lf.file = f
	lf.writer = f
	return lf, nil
}

// Writer returns the io.Writer for log output.
func (lf *LogFile) Writer() io.Writer {
	return lf.writer
}

// Close closes the log file if it was opened.
func (lf *LogFile) Close() error {
	if lf.file != nil {
		return lf.file.Close()
	}
	return nil
}

// GenerateLogFilename returns sbops-YYYYMMDD-HHMMSS-sss.log for t (UTC expected).
func GenerateLogFilename(t time.Time) string {
	return fmt.Sprintf("%s%s-%03d.log", LogFilePrefix, t.Format("20060102-150405"), t.Nanosecond()/1_000_000)
}

// CleanupOldLogFiles removes generated log files older than retentionDays.
// Files not matching sbops-*.log are left alone.
func CleanupOldLogFiles(dir string, retentionDays int) error {
	if retentionDays <= 0 || dir == "" {
		return nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading log directory %q: %w", dir, err)
	}
	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, LogFilePrefix) || !strings.HasSuffix(name, ".log") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			_ = os.Remove(filepath.Join(dir, name))
		}
	}
	return nil
}
