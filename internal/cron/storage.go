// Package cron provides persistent storage for pending deliveries using JSONL format.
package cron

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/aatumaykin/quotebot/internal/constants"
	"github.com/aatumaykin/quotebot/internal/logger"
)

// Storage persists deliveries one JSON object per line so pending sends
// survive a restart.
type Storage struct {
	filePath string
	logger   *logger.Logger
	mu       sync.Mutex
}

// NewStorage creates a Storage backed by <dir>/deliveries.jsonl.
func NewStorage(dir string, logger *logger.Logger) *Storage {
	return &Storage{
		filePath: filepath.Join(dir, constants.DeliveriesFile),
		logger:   logger,
	}
}

// Path returns the storage file path.
func (s *Storage) Path() string {
	return s.filePath
}

// Load reads all deliveries. A missing file yields an empty slice; lines
// that fail to decode are logged and skipped.
func (s *Storage) Load() ([]Delivery, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *Storage) load() ([]Delivery, error) {
	file, err := os.Open(s.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return []Delivery{}, nil
		}
		s.logger.Error("failed to open storage file", err,
			logger.Field{Key: "file", Value: s.filePath})
		return nil, err
	}
	defer file.Close()

	var deliveries []Delivery
	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var d Delivery
		if err := json.Unmarshal(line, &d); err != nil {
			s.logger.Error("failed to unmarshal delivery line", err,
				logger.Field{Key: "file", Value: s.filePath},
				logger.Field{Key: "line", Value: lineNum})
			continue
		}

		deliveries = append(deliveries, d)
	}

	if err := scanner.Err(); err != nil {
		s.logger.Error("error scanning storage file", err,
			logger.Field{Key: "file", Value: s.filePath})
		return nil, err
	}

	return deliveries, nil
}

// Append adds a delivery to the end of the file.
func (s *Storage) Append(d Delivery) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.filePath), 0755); err != nil {
		s.logger.Error("failed to create storage directory", err,
			logger.Field{Key: "dir", Value: filepath.Dir(s.filePath)})
		return err
	}

	file, err := os.OpenFile(s.filePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		s.logger.Error("failed to open storage file for append", err,
			logger.Field{Key: "file", Value: s.filePath})
		return err
	}
	defer file.Close()

	data, err := json.Marshal(d)
	if err != nil {
		return err
	}

	if _, err := file.Write(append(data, '\n')); err != nil {
		s.logger.Error("failed to write delivery to storage", err,
			logger.Field{Key: "file", Value: s.filePath},
			logger.Field{Key: "delivery_id", Value: d.ID})
		return err
	}

	s.logger.Debug("delivery appended to storage",
		logger.Field{Key: "delivery_id", Value: d.ID},
		logger.Field{Key: "file", Value: s.filePath})

	return nil
}

// Save atomically replaces the file contents with deliveries.
func (s *Storage) Save(deliveries []Delivery) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(deliveries)
}

func (s *Storage) save(deliveries []Delivery) error {
	if err := os.MkdirAll(filepath.Dir(s.filePath), 0755); err != nil {
		s.logger.Error("failed to create storage directory", err,
			logger.Field{Key: "dir", Value: filepath.Dir(s.filePath)})
		return err
	}

	tmpPath := s.filePath + ".tmp"
	file, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		s.logger.Error("failed to create temporary storage file", err,
			logger.Field{Key: "file", Value: tmpPath})
		return err
	}
	defer file.Close()

	w := bufio.NewWriter(file)
	for _, d := range deliveries {
		data, err := json.Marshal(d)
		if err != nil {
			return err
		}
		if _, err := w.Write(append(data, '\n')); err != nil {
			s.logger.Error("failed to write delivery to temporary file", err,
				logger.Field{Key: "file", Value: tmpPath},
				logger.Field{Key: "delivery_id", Value: d.ID})
			return err
		}
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if err := file.Sync(); err != nil {
		s.logger.Error("failed to sync temporary file", err,
			logger.Field{Key: "file", Value: tmpPath})
		return err
	}

	if err := os.Rename(tmpPath, s.filePath); err != nil {
		s.logger.Error("failed to rename temporary file", err,
			logger.Field{Key: "from", Value: tmpPath},
			logger.Field{Key: "to", Value: s.filePath})
		return err
	}

	s.logger.Debug("deliveries saved to storage",
		logger.Field{Key: "count", Value: len(deliveries)},
		logger.Field{Key: "file", Value: s.filePath})

	return nil
}

// MarkExecuted flags the delivery with id as executed at the given time.
// Unknown ids are logged and ignored.
func (s *Storage) MarkExecuted(id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	deliveries, err := s.load()
	if err != nil {
		return err
	}

	found := false
	for i := range deliveries {
		if deliveries[i].ID == id {
			deliveries[i].Executed = true
			deliveries[i].ExecutedAt = &at
			found = true
			break
		}
	}

	if !found {
		s.logger.Warn("delivery not found in storage",
			logger.Field{Key: "delivery_id", Value: id})
		return nil
	}

	return s.save(deliveries)
}

// RemoveExecuted drops executed deliveries and returns how many were removed.
func (s *Storage) RemoveExecuted() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	deliveries, err := s.load()
	if err != nil {
		return 0, err
	}

	kept := make([]Delivery, 0, len(deliveries))
	for _, d := range deliveries {
		if !d.Executed {
			kept = append(kept, d)
		}
	}

	removed := len(deliveries) - len(kept)
	if removed == 0 {
		s.logger.Debug("no executed deliveries to remove")
		return 0, nil
	}

	if err := s.save(kept); err != nil {
		return 0, err
	}

	s.logger.Info("removed executed deliveries",
		logger.Field{Key: "count", Value: removed})

	return removed, nil
}
