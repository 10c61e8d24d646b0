// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package partition

import (
	"fmt"
	"time"

	"github.com/tomtom215/cartographus/internal/model"
)

// bucketKey returns the time-bucket component of a partition key (no
// source), e.g. "2026-07-30" for DAILY, "2026-W31" for WEEKLY, "2026-07"
// for MONTHLY.
func bucketKey(t time.Time, typ model.PartitionType) string {
	t = t.UTC()
	switch typ {
	case model.PartitionWeekly:
		year, week := t.ISOWeek()
		return fmt.Sprintf("%04d-W%02d", year, week)
	case model.PartitionMonthly:
		return t.Format("2006-01")
	default: // DAILY
		return t.Format("2006-01-02")
	}
}

// bucketBounds returns the inclusive start and exclusive end of the bucket
// containing t.
func bucketBounds(t time.Time, typ model.PartitionType) (time.Time, time.Time) {
	t = t.UTC()
	switch typ {
	case model.PartitionWeekly:
		year, week := t.ISOWeek()
		start := isoWeekStart(year, week)
		return start, start.AddDate(0, 0, 7)
	case model.PartitionMonthly:
		start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
		return start, start.AddDate(0, 1, 0)
	default: // DAILY
		start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		return start, start.AddDate(0, 0, 1)
	}
}

// isoWeekStart returns the Monday beginning ISO week `week` of `year`.
// Jan 4 always falls in ISO week 1, so it anchors the calculation.
func isoWeekStart(year, week int) time.Time {
	jan4 := time.Date(year, 1, 4, 0, 0, 0, 0, time.UTC)
	offsetDays := int(jan4.Weekday())
	if offsetDays == 0 {
		offsetDays = 7
	}
	week1Monday := jan4.AddDate(0, 0, -(offsetDays - 1))
	return week1Monday.AddDate(0, 0, (week-1)*7)
}

// partitionKey combines the time bucket with the source, matching the
// on-disk directory convention <bucket>[-<source>].
func partitionKey(t time.Time, source string, typ model.PartitionType) string {
	b := bucketKey(t, typ)
	if source == "" {
		return b
	}
	return b + "-" + source
}
