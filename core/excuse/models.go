package excuse

import (
	"fmt"
	"time"

	"github.com/trezcool/himig/core"
)

// Kind is what a paalam asks to be excused from.
type Kind string

const (
	KindAbsence    Kind = "absence"
	KindLate       Kind = "late"
	KindStepOut    Kind = "step-out"
	KindLeaveEarly Kind = "leave-early"
)

var Kinds = []Kind{KindAbsence, KindLate, KindStepOut, KindLeaveEarly}

// Timed reports whether the kind refers to a point in time within the
// rehearsal and therefore requires an ETA/ETD.
func (k Kind) Timed() bool {
	return k == KindLate || k == KindStepOut || k == KindLeaveEarly
}

type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// Excuse is a member-submitted paalam awaiting (or past) admin decision.
type Excuse struct {
	ID         string `json:"id"`
	MemberID   string `json:"member_id"`
	Date       string `json:"date"` // YYYY-MM-DD; the rehearsal date being excused
	Kind       Kind   `json:"kind"`
	Reason     string `json:"reason"`
	ETA        string `json:"eta,omitempty"` // HH:MM; expected arrival/departure for timed kinds
	Status     Status `json:"status"`
	AdminNotes string `json:"admin_notes,omitempty"`

	DecidedBy   string    `json:"decided_by,omitempty"`
	DecidedAt   time.Time `json:"decided_at,omitempty"` // zero while pending; UTC
	RequestedAt time.Time `json:"requested_at"`         // UTC
	UpdatedAt   time.Time `json:"updated_at"`           // UTC
}

// Active reports whether the request still counts against the
// one-active-request-per-date rule.
func (e *Excuse) Active() bool {
	return e.Status != StatusRejected
}

func (e *Excuse) Decided() bool {
	return e.Status != StatusPending
}

// NewExcuse contains information needed to submit a new paalam.
type NewExcuse struct {
	MemberID string `json:"-"` // set from the authenticated session, never bound
	Date     string `json:"date" validate:"required,datestr"`
	Kind     Kind   `json:"kind" validate:"required,excusekind"`
	Reason   string `json:"reason" validate:"required"`
	ETA      string `json:"eta" validate:"omitempty,timestr"`
}

func (ne *NewExcuse) Validate() error {
	ne.Reason = core.CleanString(ne.Reason)
	ne.ETA = core.CleanString(ne.ETA)

	if err := core.Validate.Struct(ne); err != nil {
		return err
	}
	if ne.Kind.Timed() && ne.ETA == "" {
		return core.NewValidationError(nil, core.FieldError{
			Field: "eta",
			Error: fmt.Sprintf("this field is required for %s requests", ne.Kind),
		})
	}
	return nil
}

type QueryFilter struct {
	MemberID string `query:"member_id"`
	Status   Status `query:"status"`
	Kind     Kind   `query:"kind"`
	DateFrom string `query:"date_from"`
	DateTo   string `query:"date_to"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.MemberID == "" && qf.Status == "" && qf.Kind == "" && qf.DateFrom == "" && qf.DateTo == ""
}
