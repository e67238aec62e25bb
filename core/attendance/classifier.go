package attendance

import (
	"sort"

	"github.com/trezcool/himig/core/excuse"
)

// Status is the derived attendance outcome for one member on one rehearsal
// date. It is a pure projection of the logs, excuses and calendar: it is
// never stored and is recomputed on every read.
type Status string

const (
	StatusPresent             Status = "present"
	StatusLate                Status = "late" // late with an approved excuse
	StatusUnexcusedLate       Status = "unexcused-late"
	StatusExcusedAbsence      Status = "excused-absence"
	StatusUnexcusedAbsence    Status = "unexcused-absence"
	StatusStepOut             Status = "step-out"
	StatusLeaveEarly          Status = "leave-early"
	StatusUnexcusedStepOut    Status = "unexcused-step-out"
	StatusUnexcusedLeaveEarly Status = "unexcused-leave-early"
)

// Classify derives the attendance status of one member for one rehearsal
// date from their full log and excuse histories. Records for other dates
// never influence the result.
//
// Only an approved excuse excuses anything: pending and rejected requests
// leave the default unexcused outcome in place, so a decline immediately
// flips the derived status back on the next read.
//
// Classify is deterministic, side-effect free and never fails; a log or
// excuse referencing an unknown date simply finds no match here. Callers
// are responsible for only invoking it for dates that have a scheduled
// Session (non-rehearsal dates are never classified), and for surfacing
// upstream fetch errors instead of passing empty slices.
func Classify(date string, logs []Log, excuses []excuse.Excuse) Status {
	log, hasLog := findLog(date, logs)

	if hasLog {
		// an approved mid-session departure coexists with the check-in and
		// takes display precedence over the arrival call
		if exc, ok := approvedExcuse(date, excuses, excuse.KindStepOut, excuse.KindLeaveEarly); ok {
			if exc.Kind == excuse.KindStepOut {
				return StatusStepOut
			}
			return StatusLeaveEarly
		}
		if log.Arrival == ArrivalOnTime {
			return StatusPresent
		}
		if _, ok := approvedExcuse(date, excuses, excuse.KindLate); ok {
			return StatusLate
		}
		return StatusUnexcusedLate
	}

	if exc, ok := approvedExcuse(date, excuses, excuse.KindAbsence, excuse.KindStepOut, excuse.KindLeaveEarly); ok {
		switch exc.Kind {
		case excuse.KindAbsence:
			return StatusExcusedAbsence
		case excuse.KindStepOut:
			// approved to step out, but never checked in at all
			return StatusUnexcusedStepOut
		default:
			return StatusUnexcusedLeaveEarly
		}
	}
	return StatusUnexcusedAbsence
}

func findLog(date string, logs []Log) (Log, bool) {
	for _, l := range logs {
		if l.Date == date {
			return l, true
		}
	}
	return Log{}, false
}

// approvedExcuse returns the approved excuse of one of the given kinds for
// the date. When duplicates exist (pre-existing data; the write path now
// prevents them) the most recently decided one wins.
func approvedExcuse(date string, excuses []excuse.Excuse, kinds ...excuse.Kind) (excuse.Excuse, bool) {
	var match excuse.Excuse
	var found bool
	for _, exc := range excuses {
		if exc.Date != date || exc.Status != excuse.StatusApproved {
			continue
		}
		var kindOK bool
		for _, k := range kinds {
			if exc.Kind == k {
				kindOK = true
				break
			}
		}
		if !kindOK {
			continue
		}
		if !found || exc.DecidedAt.After(match.DecidedAt) {
			match = exc
			found = true
		}
	}
	return match, found
}

type (
	// DayStatus is one classified rehearsal date in a member's report.
	DayStatus struct {
		Date    string         `json:"date"`
		Session Session        `json:"session"`
		Status  Status         `json:"status"`
		Log     *Log           `json:"log,omitempty"`
		Excuse  *excuse.Excuse `json:"excuse,omitempty"`
	}

	// Tally counts classified dates per status.
	Tally map[Status]int

	// Report is a member's classified attendance over a date range.
	Report struct {
		MemberID string      `json:"member_id"`
		Days     []DayStatus `json:"days"`
		Tally    Tally       `json:"tally"`
	}
)

// BuildReport classifies every scheduled rehearsal date, in calendar order.
// Dates with no Session are never classified; they simply do not appear.
func BuildReport(memberID string, sessions []Session, logs []Log, excuses []excuse.Excuse) Report {
	report := Report{
		MemberID: memberID,
		Days:     make([]DayStatus, 0, len(sessions)),
		Tally:    make(Tally),
	}

	sorted := make([]Session, len(sessions))
	copy(sorted, sessions)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Date < sorted[j].Date })

	for _, sess := range sorted {
		day := DayStatus{
			Date:    sess.Date,
			Session: sess,
			Status:  Classify(sess.Date, logs, excuses),
		}
		if log, ok := findLog(sess.Date, logs); ok {
			l := log
			day.Log = &l
		}
		if exc, ok := approvedExcuse(sess.Date, excuses, excuse.Kinds...); ok {
			e := exc
			day.Excuse = &e
		}
		report.Days = append(report.Days, day)
		report.Tally[day.Status]++
	}
	return report
}
