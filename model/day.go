/*
Copyright 2024 Blnk Finance Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package model

import (
	"fmt"
	"strings"
	"time"
)

const dayLayout = "2006-01-02"

// Day is a reporting calendar date in YYYY-MM-DD form. The zero value means
// "no day" and is used for open range bounds.
type Day string

// DayOf truncates t to the calendar date it falls on in zone. Every
// reporting-day computation goes through here so that one zone is applied
// uniformly; a nil zone means UTC.
func DayOf(t time.Time, zone *time.Location) Day {
	if zone == nil {
		zone = time.UTC
	}
	return Day(t.In(zone).Format(dayLayout))
}

// ParseDay parses a YYYY-MM-DD string. Timestamps are rejected on purpose,
// callers must decide the zone before they hand us a day.
func ParseDay(s string) (Day, error) {
	t, err := time.Parse(dayLayout, strings.TrimSpace(s))
	if err != nil {
		return "", fmt.Errorf("invalid day %q, expected YYYY-MM-DD", s)
	}
	return Day(t.Format(dayLayout)), nil
}

func (d Day) IsZero() bool {
	return d == ""
}

func (d Day) String() string {
	return string(d)
}

// Before reports whether d is strictly earlier than o. The layout sorts
// lexically, so a string comparison is enough.
func (d Day) Before(o Day) bool {
	return d < o
}

// Start returns midnight of d in zone.
func (d Day) Start(zone *time.Location) time.Time {
	if zone == nil {
		zone = time.UTC
	}
	t, err := time.ParseInLocation(dayLayout, string(d), zone)
	if err != nil {
		return time.Time{}
	}
	return t
}

// AddDays shifts d by n calendar days.
func (d Day) AddDays(n int) Day {
	t, err := time.Parse(dayLayout, string(d))
	if err != nil {
		return d
	}
	return Day(t.AddDate(0, 0, n).Format(dayLayout))
}

// DateRange is an inclusive range of reporting days. Either bound may be
// empty, meaning the range is open on that side.
type DateRange struct {
	From Day `json:"from,omitempty"`
	To   Day `json:"to,omitempty"`
}

// NewDateRange parses optional from/to strings into a DateRange.
func NewDateRange(from, to string) (DateRange, error) {
	var rng DateRange
	var err error
	if strings.TrimSpace(from) != "" {
		if rng.From, err = ParseDay(from); err != nil {
			return DateRange{}, err
		}
	}
	if strings.TrimSpace(to) != "" {
		if rng.To, err = ParseDay(to); err != nil {
			return DateRange{}, err
		}
	}
	if !rng.From.IsZero() && !rng.To.IsZero() && rng.To.Before(rng.From) {
		return DateRange{}, fmt.Errorf("date range end %s is before start %s", rng.To, rng.From)
	}
	return rng, nil
}

// Contains reports whether d lies inside the range, bounds included.
func (r DateRange) Contains(d Day) bool {
	if !r.From.IsZero() && d.Before(r.From) {
		return false
	}
	if !r.To.IsZero() && r.To.Before(d) {
		return false
	}
	return true
}

// Instants converts the range into a half-open [from, to) pair of instants
// in zone, suitable for querying a timestamp column. A nil pointer means
// the side is unbounded.
func (r DateRange) Instants(zone *time.Location) (from, to *time.Time) {
	if !r.From.IsZero() {
		f := r.From.Start(zone)
		from = &f
	}
	if !r.To.IsZero() {
		t := r.To.AddDays(1).Start(zone)
		to = &t
	}
	return from, to
}
