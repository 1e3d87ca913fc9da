// Package report builds the maintenance history report as XLSX and PDF
// and delivers it by email and to the archive bucket.
package report

import (
	"sort"
	"time"

	"labmaint/internal/maintenance"
	"labmaint/internal/types"
)

// Period is the half-open interval [Start, End).
type Period struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls inside the period.
func (p Period) Contains(t time.Time) bool {
	return !t.Before(p.Start) && t.Before(p.End)
}

// Label renders the period with inclusive day bounds, e.g. "1/1/2026 - 28/2/2026".
func (p Period) Label() string {
	last := p.End.Add(-time.Nanosecond)
	return maintenance.FormatDueDate(p.Start) + " - " + maintenance.FormatDueDate(last)
}

// PreviousPeriod returns the months whole calendar months that end where
// now's month begins.
func PreviousPeriod(now time.Time, loc *time.Location, months int) Period {
	local := now.In(loc)
	end := time.Date(local.Year(), local.Month(), 1, 0, 0, 0, 0, loc)
	return Period{Start: end.AddDate(0, -months, 0), End: end}
}

// TrailingPeriod returns the period from the first day of the month months-1
// months back up to now. It is used for on-demand downloads.
func TrailingPeriod(now time.Time, loc *time.Location, months int) Period {
	local := now.In(loc)
	start := time.Date(local.Year(), local.Month(), 1, 0, 0, 0, 0, loc).AddDate(0, -(months - 1), 0)
	return Period{Start: start, End: local.Add(time.Nanosecond)}
}

// ObligationRow is one current obligation with its derived status.
type ObligationRow struct {
	Laboratory string
	Machine    string
	Type       string
	DueDate    string
	Status     types.ObligationStatus
}

// HistoryRow is one completion recorded inside the period.
type HistoryRow struct {
	Laboratory  string
	Machine     string
	Type        string
	DueDate     string
	CompletedAt time.Time
}

// Snapshot is the data both report formats render.
type Snapshot struct {
	Period      Period
	GeneratedAt time.Time
	Location    *time.Location
	Obligations []ObligationRow
	History     []HistoryRow
}

// BuildSnapshot derives statuses as of now and filters history to period.
// Machines are ordered by laboratory then name; history by completion time.
func BuildSnapshot(machines []*types.Machine, period Period, now time.Time, loc *time.Location) Snapshot {
	sorted := append([]*types.Machine(nil), machines...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Laboratory != sorted[j].Laboratory {
			return sorted[i].Laboratory < sorted[j].Laboratory
		}
		return sorted[i].Name < sorted[j].Name
	})

	today := now.In(loc)
	snap := Snapshot{Period: period, GeneratedAt: now, Location: loc}
	for _, m := range sorted {
		for _, ob := range m.Obligations {
			status, err := maintenance.DeriveStatus(ob.DueDate, today)
			if err != nil {
				status = types.StatusOnTrack
			}
			snap.Obligations = append(snap.Obligations, ObligationRow{
				Laboratory: m.Laboratory,
				Machine:    m.Name,
				Type:       ob.Type,
				DueDate:    ob.DueDate,
				Status:     status,
			})
		}
		for _, h := range m.History {
			if !period.Contains(h.RecordedAt) {
				continue
			}
			snap.History = append(snap.History, HistoryRow{
				Laboratory:  m.Laboratory,
				Machine:     m.Name,
				Type:        h.Type,
				DueDate:     h.DueDate,
				CompletedAt: h.RecordedAt,
			})
		}
	}
	sort.SliceStable(snap.History, func(i, j int) bool {
		return snap.History[i].CompletedAt.Before(snap.History[j].CompletedAt)
	})
	return snap
}

const completedAtLayout = "2/1/2006 15:04"

// completedAtLabel formats a completion timestamp in the report's zone.
func (s Snapshot) completedAtLabel(t time.Time) string {
	loc := s.Location
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format(completedAtLayout)
}
