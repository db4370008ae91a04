// Package store persists quotes, schedules and tracking records in SQLite.
package store

import (
	"errors"
	"sort"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var (
	// ErrNotFound is returned when a schedule does not exist.
	ErrNotFound = errors.New("store: not found")
	// ErrEmptyText is returned for a quote without text.
	ErrEmptyText = errors.New("store: quote text is empty")
	// ErrInvalidSchedule is returned for a schedule without name or cron.
	ErrInvalidSchedule = errors.New("store: schedule requires name and cron")
)

// Quote is a deliverable text with its tags. Text is unique.
type Quote struct {
	ID   int64    `json:"id" yaml:"id"`
	Text string   `json:"text" yaml:"text"`
	Tags []string `json:"tags" yaml:"tags"`
}

// Schedule is a declarative send schedule: a cron recurrence plus the tags
// selecting its eligible quotes.
type Schedule struct {
	Name string   `json:"name" yaml:"name"`
	Cron string   `json:"cron" yaml:"cron"`
	Tags []string `json:"tags" yaml:"tags"`
}

// NormalizeText trims surrounding whitespace and converts text to NFC, so
// visually identical quotes collide on the uniqueness constraint.
func NormalizeText(text string) string {
	return norm.NFC.String(strings.TrimSpace(text))
}

// NormalizeTags lowercases, trims, dedupes and sorts tags. Empty tags are dropped.
func NormalizeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.ToLower(norm.NFC.String(strings.TrimSpace(tag)))
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	sort.Strings(out)
	return out
}
