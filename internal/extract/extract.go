// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

// Package extract applies configured FieldConfigurations to a LogEvent,
// producing augmented metadata. Extraction is a pure function: errors on a
// single rule are non-fatal and recorded as counters, the event always
// flows through.
package extract

import (
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tomtom215/cartographus/internal/cache"
	"github.com/tomtom215/cartographus/internal/logging"
	"github.com/tomtom215/cartographus/internal/model"
)

// knownErrorSignatures are common failure markers recognized across
// languages/runtimes without requiring a configured FieldConfiguration.
// Matching is pure text search (Aho-Corasick, O(n) regardless of how many
// signatures are configured), so it stays cheap to run on every event.
var knownErrorSignatures = []string{
	"OutOfMemoryError", "NullPointerException", "panic:", "segmentation fault",
	"connection refused", "connection reset by peer", "deadlock detected",
	"stack trace", "Traceback (most recent call last)", "ECONNREFUSED",
	"EADDRINUSE", "too many open files",
}

// compiledRule pairs a FieldConfiguration with its compiled regex so Apply
// never recompiles per event.
type compiledRule struct {
	cfg *model.FieldConfiguration
	re  *compiledRegex
}

// Extractor holds an immutable snapshot of enabled field configurations,
// swapped atomically on Reload.
type Extractor struct {
	rules        atomic.Pointer[[]compiledRule]
	errs         sync.Map // name -> *int64 error counter
	errorMatcher *cache.KnownErrorMatcher
}

// New builds an Extractor from an initial set of field configurations.
// Rules that fail to compile are dropped and logged; extraction continues
// with the remainder.
func New(cfgs []model.FieldConfiguration) *Extractor {
	e := &Extractor{errorMatcher: cache.NewKnownErrorMatcher(knownErrorSignatures)}
	e.Reload(cfgs)
	return e
}

// Reload atomically swaps the active rule set. Invalid patterns are
// skipped with a logged warning rather than failing the whole reload.
func (e *Extractor) Reload(cfgs []model.FieldConfiguration) {
	compiled := make([]compiledRule, 0, len(cfgs))
	for i := range cfgs {
		c := cfgs[i]
		if !c.Enabled {
			continue
		}
		re, err := compileRegex(c.ExtractionPattern)
		if err != nil {
			logging.Error().Err(err).Str("field", c.Name).Msg("field configuration pattern failed to compile, skipping")
			continue
		}
		compiled = append(compiled, compiledRule{cfg: &c, re: re})
	}
	e.rules.Store(&compiled)
}

// Apply extracts every enabled field configuration's value into e's
// metadata map and returns the same event. Per-rule failures increment that
// rule's error counter and leave the event's metadata unchanged for it.
// It also tags event.Metadata["known_error_signature"] when the message
// matches a built-in failure signature, independent of any configured rule.
func (e *Extractor) Apply(event *model.LogEvent) *model.LogEvent {
	if event.Metadata == nil {
		event.Metadata = make(map[string]string)
	}

	rules := e.rules.Load()
	if rules != nil {
		for _, rule := range *rules {
			val, ok := e.extractOne(event, rule)
			if !ok {
				continue
			}
			event.Metadata[rule.cfg.Name] = val
		}
	}

	if matches := e.errorMatcher.Find(event.Message); len(matches) > 0 {
		event.Metadata["known_error_signature"] = matches[0].Pattern
	}
	return event
}

func (e *Extractor) extractOne(event *model.LogEvent, rule compiledRule) (string, bool) {
	source := sourceFieldValue(event, rule.cfg.SourceField)
	match := rule.re.FirstGroupOrWhole(source)
	if match == "" {
		return "", false
	}

	coerced, err := coerce(match, rule.cfg.Type, rule.cfg.DateFormat)
	if err != nil {
		e.incError(rule.cfg.Name)
		return "", false
	}
	return coerced, true
}

func (e *Extractor) incError(field string) {
	v, _ := e.errs.LoadOrStore(field, new(int64))
	atomic.AddInt64(v.(*int64), 1)
}

// ErrorCount returns how many extraction failures a field configuration has
// accumulated since the Extractor was created (or last Reload, for rules
// still present in the new set).
func (e *Extractor) ErrorCount(field string) int64 {
	v, ok := e.errs.Load(field)
	if !ok {
		return 0
	}
	return atomic.LoadInt64(v.(*int64))
}

func sourceFieldValue(event *model.LogEvent, sourceField string) string {
	switch strings.ToLower(sourceField) {
	case "message", "":
		return event.Message
	case "rawcontent":
		return event.RawContent
	case "level":
		return event.Level
	case "source":
		return event.Source
	default:
		if event.Metadata != nil {
			return event.Metadata[sourceField]
		}
		return ""
	}
}

// coerce converts a matched string to the canonical textual representation
// of its declared FieldType: numbers become a decimal string, dates become
// epoch millis, booleans become "true"/"false".
func coerce(raw string, t model.FieldType, dateFormat string) (string, error) {
	switch t {
	case model.FieldNumber:
		f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return "", err
		}
		return strconv.FormatFloat(f, 'f', -1, 64), nil
	case model.FieldBoolean:
		b, err := strconv.ParseBool(strings.ToLower(strings.TrimSpace(raw)))
		if err != nil {
			return "", err
		}
		return strconv.FormatBool(b), nil
	case model.FieldDate:
		layout := dateFormat
		if layout == "" {
			layout = time.RFC3339
		}
		ts, err := time.Parse(layout, raw)
		if err != nil {
			return "", err
		}
		return strconv.FormatInt(ts.UnixMilli(), 10), nil
	default: // STRING
		return raw, nil
	}
}
