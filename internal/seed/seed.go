// Package seed imports quotes and schedules from a YAML file into the store.
//
// Example file:
//
//	quotes:
//	  - text: "Simplicity is prerequisite for reliability."
//	    tags: [morning, engineering]
//	schedules:
//	  - name: daily
//	    cron: "0 0 9 * * ?"
//	    tags: [morning]
package seed

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/aatumaykin/quotebot/internal/cron"
	"github.com/aatumaykin/quotebot/internal/logger"
	"github.com/aatumaykin/quotebot/internal/store"
	"gopkg.in/yaml.v3"
)

// File is the decoded seed file.
type File struct {
	Quotes    []store.Quote    `yaml:"quotes"`
	Schedules []store.Schedule `yaml:"schedules"`
}

// Store is the write side of the quote store used by Import.
type Store interface {
	AddQuote(ctx context.Context, text string, tags []string) (store.Quote, error)
	UpsertSchedule(ctx context.Context, sched store.Schedule) error
	ListSchedules(ctx context.Context) ([]store.Schedule, error)
	DeleteSchedule(ctx context.Context, name string) error
}

// Result counts what an import changed.
type Result struct {
	Quotes    int
	Schedules int
	Pruned    int
	Skipped   int
}

// Load reads and parses the seed file at path.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}
	return Parse(data)
}

// Parse decodes seed YAML. Unknown keys are rejected.
func Parse(data []byte) (*File, error) {
	var f File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return &f, nil
		}
		return nil, fmt.Errorf("failed to parse seed file: %w", err)
	}
	return &f, nil
}

// Import writes f into st. Quotes are added (duplicates merge their tags),
// schedules are upserted. Entries that fail validation are skipped and
// reported in the returned error; valid entries are still imported. With
// prune set, stored schedules absent from f are deleted.
func Import(ctx context.Context, st Store, f *File, prune bool, log *logger.Logger) (Result, error) {
	if log == nil {
		log = logger.Nop()
	}

	var (
		res  Result
		errs []error
	)

	for i, q := range f.Quotes {
		if _, err := st.AddQuote(ctx, q.Text, q.Tags); err != nil {
			if errors.Is(err, store.ErrEmptyText) {
				res.Skipped++
				errs = append(errs, fmt.Errorf("quotes[%d]: %w", i, err))
				continue
			}
			return res, err
		}
		res.Quotes++
	}

	keep := make(map[string]struct{}, len(f.Schedules))
	for i, sched := range f.Schedules {
		name := strings.TrimSpace(sched.Name)
		if name == "" {
			res.Skipped++
			errs = append(errs, fmt.Errorf("schedules[%d]: %w", i, store.ErrInvalidSchedule))
			continue
		}
		// A schedule that fails validation is still kept when pruning, so
		// a typo never deletes the stored version.
		keep[name] = struct{}{}

		if err := cron.ValidateSpec(sched.Cron); err != nil {
			res.Skipped++
			errs = append(errs, fmt.Errorf("schedules[%d] %q: %w", i, name, err))
			continue
		}
		if err := st.UpsertSchedule(ctx, sched); err != nil {
			return res, err
		}
		res.Schedules++
	}

	if prune {
		stored, err := st.ListSchedules(ctx)
		if err != nil {
			return res, err
		}
		for _, sched := range stored {
			if _, ok := keep[sched.Name]; ok {
				continue
			}
			if err := st.DeleteSchedule(ctx, sched.Name); err != nil && !errors.Is(err, store.ErrNotFound) {
				return res, err
			}
			res.Pruned++
		}
	}

	log.InfoCtx(ctx, "seed imported",
		logger.Field{Key: "quotes", Value: res.Quotes},
		logger.Field{Key: "schedules", Value: res.Schedules},
		logger.Field{Key: "pruned", Value: res.Pruned},
		logger.Field{Key: "skipped", Value: res.Skipped})

	return res, errors.Join(errs...)
}

// ImportFile loads path and imports it.
func ImportFile(ctx context.Context, st Store, path string, prune bool, log *logger.Logger) (Result, error) {
	f, err := Load(path)
	if err != nil {
		return Result{}, err
	}
	return Import(ctx, st, f, prune, log)
}
