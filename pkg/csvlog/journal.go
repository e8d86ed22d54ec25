package csvlog

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"igwatcher/pkg/profile"
)

// header matches the columns the scheduled run's artifact consumers expect.
var header = []string{"timestamp", "username", "followers", "following", "is_picture_updated"}

// Journal is an append-only CSV log of profile observations. The file is
// never rewritten: the header goes in when the file is created and every
// observation appends exactly one row.
type Journal struct {
	path string
	mu   sync.Mutex
}

// NewJournal creates a journal writing to the given path. The file itself
// is created lazily on first append.
func NewJournal(path string) (*Journal, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
	}
	return &Journal{path: path}, nil
}

// Append writes one observation row, creating the file with a header row
// first if needed. The write is flushed before returning so a crash after
// Append never loses the row.
func (j *Journal) Append(obs profile.Observation) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	writeHeader, err := j.needsHeader()
	if err != nil {
		return err
	}

	f, err := os.OpenFile(j.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)

	if writeHeader {
		if err := w.Write(header); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
	}

	if err := w.Write(rowFor(obs)); err != nil {
		return fmt.Errorf("failed to write row: %w", err)
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to flush log file: %w", err)
	}

	return f.Sync()
}

// Path returns the journal's file path.
func (j *Journal) Path() string {
	return j.path
}

// RowCount returns the number of data rows currently in the journal.
func (j *Journal) RowCount() (int, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	f, err := os.Open(j.path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to open log file: %w", err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return 0, fmt.Errorf("failed to read log file: %w", err)
	}

	if len(records) == 0 {
		return 0, nil
	}
	return len(records) - 1, nil // minus header
}

func (j *Journal) needsHeader() (bool, error) {
	info, err := os.Stat(j.path)
	if err != nil {
		if os.IsNotExist(err) {
			return true, nil
		}
		return false, fmt.Errorf("failed to stat log file: %w", err)
	}
	return info.Size() == 0, nil
}

func rowFor(obs profile.Observation) []string {
	updated := "0"
	if obs.PictureUpdated {
		updated = "1"
	}

	return []string{
		obs.Timestamp.Format(time.RFC3339),
		obs.Username,
		formatCount(obs.Followers),
		formatCount(obs.Following),
		updated,
	}
}

// formatCount renders an optional count, leaving the field empty when the
// value could not be determined.
func formatCount(v *int64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatInt(*v, 10)
}
