package tracking

import (
	"bufio"
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
)

const fileExt = ".ids"

// FileLog keeps one text file per schedule with one quote id per line.
// Clearing a record truncates its file.
type FileLog struct {
	dir string
	mu  sync.Mutex
}

// NewFileLog creates the tracking directory if needed.
func NewFileLog(dir string) (*FileLog, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create tracking directory: %w", err)
	}
	return &FileLog{dir: dir}, nil
}

// Path returns the file backing schedule.
func (l *FileLog) Path(schedule string) string {
	return filepath.Join(l.dir, url.PathEscape(schedule)+fileExt)
}

// Load reads the record of schedule. Lines that do not parse as an id
// (for example a torn write after a crash) are skipped.
func (l *FileLog) Load(ctx context.Context, schedule string) (Record, error) {
	if schedule == "" {
		return Record{}, ErrInvalidSchedule
	}
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	record := NewRecord(schedule)

	file, err := os.Open(l.Path(schedule))
	if err != nil {
		if os.IsNotExist(err) {
			return record, nil
		}
		return Record{}, fmt.Errorf("failed to open tracking file: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		id, err := strconv.ParseInt(line, 10, 64)
		if err != nil {
			continue
		}
		record.IDs[id] = struct{}{}
	}
	if err := scanner.Err(); err != nil {
		return Record{}, fmt.Errorf("failed to read tracking file: %w", err)
	}

	return record, nil
}

// Append adds quoteID to the record of schedule and syncs the file.
func (l *FileLog) Append(ctx context.Context, schedule string, quoteID int64) error {
	if schedule == "" {
		return ErrInvalidSchedule
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	file, err := os.OpenFile(l.Path(schedule), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open tracking file: %w", err)
	}
	defer file.Close()

	if _, err := file.WriteString(strconv.FormatInt(quoteID, 10) + "\n"); err != nil {
		return fmt.Errorf("failed to append to tracking file: %w", err)
	}
	if err := file.Sync(); err != nil {
		return fmt.Errorf("failed to sync tracking file: %w", err)
	}

	return nil
}

// Clear truncates the record of schedule. Clearing a missing record is a no-op.
func (l *FileLog) Clear(ctx context.Context, schedule string) error {
	if schedule == "" {
		return ErrInvalidSchedule
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.Truncate(l.Path(schedule), 0); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to truncate tracking file: %w", err)
	}

	return nil
}
