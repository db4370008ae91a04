// Package cron provides cron expression validation logic.
package cron

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/robfig/cron/v3"
)

// newParser accepts Quartz-style six-field specs (seconds first), classic
// five-field specs and @descriptors. '?' is accepted in the day fields.
func newParser() cron.Parser {
	return cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
}

// NormalizeSpec trims the expression and drops a trailing Quartz year field.
// Only a wildcard year ("*" or "?") can be dropped; explicit years are rejected.
// Six- and seven-field specs are Quartz: numeric days of week run 1-7 from
// SUN and are shifted to the 0-6 range robfig expects. Five-field specs keep
// classic cron numbering.
func NormalizeSpec(spec string) (string, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return "", fmt.Errorf("%w: empty schedule", ErrInvalidCron)
	}
	if strings.HasPrefix(spec, "@") {
		return spec, nil
	}

	fields := strings.Fields(spec)
	if len(fields) == 7 {
		year := fields[6]
		if year != "*" && year != "?" {
			return "", fmt.Errorf("%w: year field %q is not supported", ErrInvalidCron, year)
		}
		fields = fields[:6]
	}

	if len(fields) == 6 {
		dow, err := quartzDayOfWeek(fields[5])
		if err != nil {
			return "", err
		}
		fields[5] = dow
	}

	return strings.Join(fields, " "), nil
}

// quartzDayOfWeek rewrites numeric Quartz days (1=SUN .. 7=SAT) to 0-6.
// Lists, ranges and the start of a step are rewritten; names, wildcards
// and step sizes are left alone.
func quartzDayOfWeek(field string) (string, error) {
	parts := strings.Split(field, ",")
	for i, part := range parts {
		base, step, hasStep := strings.Cut(part, "/")
		bounds := strings.Split(base, "-")
		for j, b := range bounds {
			n, err := strconv.Atoi(b)
			if err != nil {
				continue
			}
			if n < 1 || n > 7 {
				return "", fmt.Errorf("%w: day of week %d out of range 1-7", ErrInvalidCron, n)
			}
			bounds[j] = strconv.Itoa(n - 1)
		}
		parts[i] = strings.Join(bounds, "-")
		if hasStep {
			parts[i] += "/" + step
		}
	}
	return strings.Join(parts, ","), nil
}

// ParseSpec normalizes and parses spec.
func ParseSpec(spec string) (cron.Schedule, error) {
	normalized, err := NormalizeSpec(spec)
	if err != nil {
		return nil, err
	}

	schedule, err := newParser().Parse(normalized)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCron, err)
	}
	return schedule, nil
}

// ValidateSpec reports whether spec can be scheduled.
func ValidateSpec(spec string) error {
	_, err := ParseSpec(spec)
	return err
}
