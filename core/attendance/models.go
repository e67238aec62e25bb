package attendance

import (
	"time"

	"github.com/trezcool/himig/core"
)

// Session is a scheduled rehearsal. The org holds at most one per calendar
// date, so Date doubles as the natural key.
type Session struct {
	ID        string    `json:"id"`
	Date      string    `json:"date"`       // YYYY-MM-DD
	StartTime string    `json:"start_time"` // HH:MM
	EndTime   string    `json:"end_time"`   // HH:MM
	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

// StartsAt resolves the session's start as a wall-clock instant in loc.
func (s *Session) StartsAt(loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(core.DateLayout+" "+core.TimeLayout, s.Date+" "+s.StartTime, loc)
}

// NewSession contains information needed to schedule a rehearsal.
type NewSession struct {
	Date      string `json:"date" validate:"required,datestr"`
	StartTime string `json:"start_time" validate:"required,timestr"`
	EndTime   string `json:"end_time" validate:"required,timestr"`
	Notes     string `json:"notes"`
}

func (ns *NewSession) Validate() error {
	ns.Notes = core.CleanString(ns.Notes)
	return core.Validate.Struct(ns)
}

// UpdateSession defines what may be modified on a scheduled rehearsal.
// The date is fixed; reschedules are a delete + create.
type UpdateSession struct {
	StartTime string `json:"start_time" validate:"omitempty,timestr"`
	EndTime   string `json:"end_time" validate:"omitempty,timestr"`
	Notes     string `json:"notes"`
}

func (us *UpdateSession) Validate() error {
	us.Notes = core.CleanString(us.Notes)
	return core.Validate.Struct(us)
}

// Method is how a check-in was recorded.
type Method string

const (
	MethodScan   Method = "scan" // device scan at the venue
	MethodManual Method = "manual"
	MethodWeb    Method = "web"
)

var Methods = []Method{MethodScan, MethodManual, MethodWeb}

// Arrival is the raw on-time/late call made at record time by comparing the
// check-in instant against the session start plus the configured grace.
type Arrival string

const (
	ArrivalOnTime Arrival = "on-time"
	ArrivalLate   Arrival = "late"
)

// Log is a member's check-in for a rehearsal date. At most one exists per
// (member, date) and it is immutable once recorded.
type Log struct {
	ID         string    `json:"id"`
	MemberID   string    `json:"member_id"`
	Date       string    `json:"date"` // YYYY-MM-DD; the rehearsal checked into
	RecordedAt time.Time `json:"recorded_at"`
	Method     Method    `json:"method"`
	Arrival    Arrival   `json:"arrival"`
}

// CheckIn contains information needed to record a check-in.
type CheckIn struct {
	MemberID string `json:"member_id"` // admins may record for another member
	Date     string `json:"date" validate:"omitempty,datestr"`
	Method   Method `json:"method"`
}

func (ci *CheckIn) Validate() error {
	if ci.Method == "" {
		ci.Method = MethodWeb
	}
	var known bool
	for _, m := range Methods {
		if m == ci.Method {
			known = true
			break
		}
	}
	if !known {
		return core.NewValidationError(nil, core.FieldError{Field: "method", Error: "invalid check-in method"})
	}
	return core.Validate.Struct(ci)
}
