package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
	_ "time/tzdata" // embedded zone database

	"onfleet-workers-go/internal/apperr"
)

// ScheduleDateLayout is the layout of WorkerSchedule.Date.
const ScheduleDateLayout = "2006-01-02"

// WorkerSchedule is one scheduled day of a worker.
type WorkerSchedule struct {
	Date     string  `json:"date"`
	Timezone string  `json:"timezone"`
	Shifts   []Shift `json:"shifts"`
}

// Shift is a working interval in Unix milliseconds. On the wire it is a
// [start, end] pair.
type Shift struct {
	Start int64
	End   int64
}

// NewShift builds a shift from wall-clock bounds.
func NewShift(start, end time.Time) Shift {
	return Shift{Start: start.UnixMilli(), End: end.UnixMilli()}
}

// Bounds returns the shift as times.
func (s Shift) Bounds() (time.Time, time.Time) {
	return time.UnixMilli(s.Start), time.UnixMilli(s.End)
}

// MarshalJSON encodes the shift as [start, end].
func (s Shift) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]int64{s.Start, s.End})
}

// UnmarshalJSON decodes a [start, end] pair.
func (s *Shift) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil
	}
	var pair []json.Number
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("shift: %w", err)
	}
	if len(pair) != 2 {
		return fmt.Errorf("shift: want [start, end], got %d values", len(pair))
	}
	start, err := pair[0].Int64()
	if err != nil {
		return fmt.Errorf("shift start %s is not a whole number of milliseconds: %w", pair[0], err)
	}
	end, err := pair[1].Int64()
	if err != nil {
		return fmt.Errorf("shift end %s is not a whole number of milliseconds: %w", pair[1], err)
	}
	s.Start, s.End = start, end
	return nil
}

// Validate checks the schedule as accepted by setSchedule: a calendar date,
// a known IANA timezone and exactly one shift with start before end.
func (ws WorkerSchedule) Validate() error {
	if _, err := time.Parse(ScheduleDateLayout, ws.Date); err != nil {
		return fmt.Errorf("%w: schedule date %q must be YYYY-MM-DD", apperr.Invalid, ws.Date)
	}
	if ws.Timezone == "" {
		return fmt.Errorf("%w: schedule timezone is required", apperr.Invalid)
	}
	if _, err := time.LoadLocation(ws.Timezone); err != nil {
		return fmt.Errorf("%w: unknown timezone %q", apperr.Invalid, ws.Timezone)
	}
	if len(ws.Shifts) != 1 {
		return fmt.Errorf("%w: schedule must contain exactly one shift, got %d", apperr.Invalid, len(ws.Shifts))
	}
	sh := ws.Shifts[0]
	if sh.Start < 0 || sh.End <= sh.Start {
		return fmt.Errorf("%w: shift start must be before end", apperr.Invalid)
	}
	return nil
}

// Clone returns a deep copy.
func (ws WorkerSchedule) Clone() WorkerSchedule {
	ws.Shifts = append([]Shift(nil), ws.Shifts...)
	return ws
}
