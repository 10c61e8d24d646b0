// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

// Package model holds the shared data types that flow between GrepWise's
// ingestion, indexing, query, alarm, and event-bus subsystems.
package model

import (
	"time"

	"github.com/google/uuid"
)

// LogEvent is the atomic unit indexed and searched by the core. It is
// immutable after field extraction (C3) finishes; ownership passes from the
// ingestion pipeline to the index store once added.
type LogEvent struct {
	ID         string            `json:"id"`
	IngestTime time.Time         `json:"ingestTime"`
	RecordTime time.Time         `json:"recordTime,omitzero"`
	Level      string            `json:"level,omitempty"`
	Source     string            `json:"source"`
	Message    string            `json:"message"`
	RawContent string            `json:"rawContent"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// NewLogEvent builds a LogEvent with a fresh id and ingestTime set to now.
func NewLogEvent(source, raw string) *LogEvent {
	return &LogEvent{
		ID:         uuid.NewString(),
		Source:     source,
		IngestTime: time.Now().UTC(),
		RawContent: raw,
		Message:    raw,
		Metadata:   make(map[string]string),
	}
}

// EffectiveTime returns RecordTime when present, else IngestTime — the
// timestamp used for partition bucketing and retention comparisons.
func (e *LogEvent) EffectiveTime() time.Time {
	if !e.RecordTime.IsZero() {
		return e.RecordTime
	}
	return e.IngestTime
}

// FieldType is the declared type of a FieldConfiguration's extracted value.
type FieldType string

const (
	FieldString  FieldType = "STRING"
	FieldNumber  FieldType = "NUMBER"
	FieldDate    FieldType = "DATE"
	FieldBoolean FieldType = "BOOLEAN"
)

// FieldConfiguration is a named extraction rule applied by C3 to raw text.
type FieldConfiguration struct {
	Name              string    `json:"name" validate:"required"`
	Type              FieldType `json:"type" validate:"required,oneof=STRING NUMBER DATE BOOLEAN"`
	SourceField       string    `json:"sourceField" validate:"required"`
	ExtractionPattern string    `json:"extractionPattern" validate:"required"`
	DateFormat        string    `json:"dateFormat,omitempty"`
	Stored            bool      `json:"stored"`
	Indexed           bool      `json:"indexed"`
	Tokenized         bool      `json:"tokenized"`
	Enabled           bool      `json:"enabled"`
}

// PartitionType is the time-bucket granularity a Partition is keyed by.
type PartitionType string

const (
	PartitionDaily   PartitionType = "DAILY"
	PartitionWeekly  PartitionType = "WEEKLY"
	PartitionMonthly PartitionType = "MONTHLY"
)

// PartitionState is the lifecycle stage of a Partition.
type PartitionState string

const (
	PartitionActive   PartitionState = "ACTIVE"
	PartitionSealed   PartitionState = "SEALED"
	PartitionArchived PartitionState = "ARCHIVED"
)

// Partition is a bounded slice of the index scoped by a time bucket and
// optional source.
type Partition struct {
	Key         string         `json:"partitionKey"`
	Source      string         `json:"source,omitempty"`
	StartTs     time.Time      `json:"startTs"`
	EndTs       time.Time      `json:"endTs"`
	State       PartitionState `json:"activeState"`
	Directory   string         `json:"directory"`
	EventCount  int64          `json:"eventCount"`
}

// RetentionPolicy bounds how long events for a (optional) source are kept.
type RetentionPolicy struct {
	Name         string `json:"name" validate:"required"`
	MaxAgeDays   int    `json:"maxAgeDays" validate:"required,min=1"`
	Enabled      bool   `json:"enabled"`
	SourceFilter string `json:"sourceFilter,omitempty"`
}

// Threshold computes the retention cutoff instant relative to now.
func (p RetentionPolicy) Threshold(now time.Time) time.Time {
	return now.AddDate(0, 0, -p.MaxAgeDays)
}

// AlarmCondition compares a computed count against Alarm.Threshold.
type AlarmCondition string

const (
	CondGreaterThan AlarmCondition = ">"
	CondGreaterEq   AlarmCondition = ">="
	CondEqual       AlarmCondition = "="
	CondLessEq      AlarmCondition = "<="
	CondLessThan    AlarmCondition = "<"
)

// Evaluate applies the condition to a measured count against threshold.
func (c AlarmCondition) Evaluate(count, threshold float64) bool {
	switch c {
	case CondGreaterThan:
		return count > threshold
	case CondGreaterEq:
		return count >= threshold
	case CondEqual:
		return count == threshold
	case CondLessEq:
		return count <= threshold
	case CondLessThan:
		return count < threshold
	default:
		return false
	}
}

// ChannelType identifies a notification transport for an Alarm.
type ChannelType string

const (
	ChannelEmail     ChannelType = "EMAIL"
	ChannelSlack     ChannelType = "SLACK"
	ChannelWebhook   ChannelType = "WEBHOOK"
	ChannelPagerDuty ChannelType = "PAGERDUTY"
	ChannelOpsGenie  ChannelType = "OPSGENIE"
)

// NotificationChannel is a tagged destination for alarm firings. Only the
// field relevant to Type is populated.
type NotificationChannel struct {
	Type       ChannelType `json:"type" validate:"required,oneof=EMAIL SLACK WEBHOOK PAGERDUTY OPSGENIE"`
	Dest       string      `json:"dest,omitempty"`       // EMAIL
	WebhookURL string      `json:"webhook,omitempty"`    // SLACK, WEBHOOK
	RoutingKey string      `json:"routingKey,omitempty"` // PAGERDUTY
	APIKey     string      `json:"apiKey,omitempty"`     // OPSGENIE
}

// Alarm is a saved SPL query plus a threshold condition evaluated on a
// sliding window, with grouping and throttling controls.
type Alarm struct {
	ID                        string                `json:"id"`
	Name                      string                `json:"name" validate:"required"`
	Query                     string                `json:"query" validate:"required"`
	Condition                 AlarmCondition         `json:"condition" validate:"required"`
	Threshold                 int                    `json:"threshold"`
	TimeWindowMinutes         int                    `json:"timeWindowMinutes" validate:"required,min=1"`
	Enabled                   bool                   `json:"enabled"`
	NotificationChannels      []NotificationChannel  `json:"notificationChannels"`
	ThrottleWindowMinutes     int                    `json:"throttleWindowMinutes" validate:"min=1"`
	MaxNotificationsPerWindow int                    `json:"maxNotificationsPerWindow" validate:"min=1"`
	GroupingKey               string                 `json:"groupingKey,omitempty"`
	GroupingWindowMinutes     int                    `json:"groupingWindowMinutes" validate:"min=1"`
}

// AlarmEventStatus is the lifecycle stage of an AlarmEvent. The scheduler
// only ever emits TRIGGERED; ACKNOWLEDGED/RESOLVED are operator-driven.
type AlarmEventStatus string

const (
	AlarmTriggered   AlarmEventStatus = "TRIGGERED"
	AlarmAcknowledged AlarmEventStatus = "ACKNOWLEDGED"
	AlarmResolved     AlarmEventStatus = "RESOLVED"
)

// CanTransition reports whether moving from the current status to next is
// allowed by the AlarmEvent state machine (no back-transitions).
func (s AlarmEventStatus) CanTransition(next AlarmEventStatus) bool {
	switch s {
	case AlarmTriggered:
		return next == AlarmAcknowledged || next == AlarmResolved
	case AlarmAcknowledged:
		return next == AlarmResolved
	default:
		return false
	}
}

// AlarmEvent records one evaluation of an Alarm that crossed its threshold.
type AlarmEvent struct {
	ID           string           `json:"id"`
	AlarmID      string           `json:"alarmId"`
	Timestamp    time.Time        `json:"timestamp"`
	Status       AlarmEventStatus `json:"status"`
	MatchCount   int              `json:"matchCount"`
	GroupKey     string           `json:"groupKey,omitempty"`
	AckBy        string           `json:"ackBy,omitempty"`
	AckAt        *time.Time       `json:"ackAt,omitempty"`
	ResolvedBy   string           `json:"resolvedBy,omitempty"`
	ResolvedAt   *time.Time       `json:"resolvedAt,omitempty"`
}

// PipelineCommandKind names the supported SPL-like pipeline commands.
type PipelineCommandKind string

const (
	CmdStats  PipelineCommandKind = "stats"
	CmdWhere  PipelineCommandKind = "where"
	CmdEval   PipelineCommandKind = "eval"
	CmdSort   PipelineCommandKind = "sort"
	CmdHead   PipelineCommandKind = "head"
	CmdRename PipelineCommandKind = "rename"
)

// StatsAggFunc names one stats aggregation function.
type StatsAggFunc string

const (
	AggCount         StatsAggFunc = "count"
	AggSum           StatsAggFunc = "sum"
	AggAvg           StatsAggFunc = "avg"
	AggMin           StatsAggFunc = "min"
	AggMax           StatsAggFunc = "max"
	AggDistinctCount StatsAggFunc = "distinct_count"
)

// StatsTerm is one `func(field) [AS alias]` term of a stats command.
type StatsTerm struct {
	Func  StatsAggFunc
	Field string
	Alias string
}

// SortField is one field of a sort command.
type SortField struct {
	Field string
	Desc  bool
}

// PipelineCommand is one step of a CompiledQuery's post-match pipeline.
type PipelineCommand struct {
	Kind PipelineCommandKind

	// stats
	StatsTerms []StatsTerm
	GroupBy    []string

	// where / eval
	Expr string

	// sort
	SortFields []SortField

	// head
	Limit int

	// rename
	RenameFrom string
	RenameTo   string
}

// CompiledQuery is the output of the C6 compiler: an index predicate plus
// absolute time range, and an ordered post-match pipeline. It is a pure
// value with no ownership over the events it matches.
type CompiledQuery struct {
	Raw       string
	Predicate IndexPredicate
	StartTime time.Time
	EndTime   time.Time
	Pipeline  []PipelineCommand
}

// IndexPredicate is the boolean-tree leaf evaluated against one LogEvent by
// the index store / search executor.
type IndexPredicate interface {
	Match(e *LogEvent) bool
	String() string
}

// RingDropPolicy is the overflow policy for a Subscription's ring buffer.
type RingDropPolicy string

const DropOldest RingDropPolicy = "DROP_OLDEST"

// Subscription is an active event-bus stream: a topic plus a per-subscriber
// bounded ring buffer. Lifetime is the caller's stream connection (C10).
type Subscription struct {
	ID      string
	Topic   string
	Created time.Time
}
