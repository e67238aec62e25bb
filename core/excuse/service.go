package excuse

import (
	"context"
	"net/mail"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/himig/core"
	"github.com/trezcool/himig/core/user"
)

var (
	// errors
	ErrNotFound         = errors.New("excuse request not found")
	ErrDuplicateRequest = errors.New("an active excuse request already exists for this date")

	errAlreadyApproved = errors.New("excuse request is already approved")
	errAlreadyRejected = errors.New("excuse request is already rejected")
)

type (
	Repository interface {
		CreateExcuse(ctx context.Context, exc Excuse) (Excuse, error)
		GetExcuse(ctx context.Context, id string) (Excuse, error)
		// GetActiveExcuse returns the non-rejected request for (memberID, date), or ErrNotFound.
		GetActiveExcuse(ctx context.Context, memberID, date string) (Excuse, error)
		QueryExcuses(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Excuse, error)
		// UpdateExcuseStatus updates only the decision fields of a single
		// request; it is the workflow's one (atomic) write.
		UpdateExcuseStatus(ctx context.Context, id string, status Status, notes, decidedBy string, decidedAt time.Time) (Excuse, error)
	}

	ServiceInterface interface {
		Submit(ctx context.Context, ne NewExcuse) (Excuse, error)
		GetByID(ctx context.Context, id string) (Excuse, error)
		Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Excuse, error)
		QueryForMember(ctx context.Context, memberID string) ([]Excuse, error)
		Approve(ctx context.Context, id string, admin user.User) (Excuse, error)
		Decline(ctx context.Context, id, reason string, admin user.User) (Excuse, error)
	}

	service struct {
		repo    Repository
		usrSvc  user.ServiceInterface
		mailSvc core.EmailService
	}
)

var _ ServiceInterface = (*service)(nil)

func NewService(repo Repository, usrSvc user.ServiceInterface, mailSvc core.EmailService) ServiceInterface {
	return &service{
		repo:    repo,
		usrSvc:  usrSvc,
		mailSvc: mailSvc,
	}
}

// Submit records a new paalam with status pending.
// At most one active (non-rejected) request may exist per (member, date);
// duplicates are rejected here at the write path.
func (svc *service) Submit(ctx context.Context, ne NewExcuse) (Excuse, error) {
	if _, err := svc.repo.GetActiveExcuse(ctx, ne.MemberID, ne.Date); err == nil {
		return Excuse{}, core.NewValidationError(ErrDuplicateRequest, core.FieldError{
			Field: "date",
			Error: ErrDuplicateRequest.Error(),
		})
	} else if errors.Cause(err) != ErrNotFound {
		return Excuse{}, errors.Wrap(err, "checking for active excuse")
	}

	now := time.Now().UTC()
	exc := Excuse{
		MemberID:    ne.MemberID,
		Date:        ne.Date,
		Kind:        ne.Kind,
		Reason:      ne.Reason,
		ETA:         ne.ETA,
		Status:      StatusPending,
		RequestedAt: now,
		UpdatedAt:   now,
	}
	exc, err := svc.repo.CreateExcuse(ctx, exc)
	if err != nil {
		return Excuse{}, err
	}

	svc.sendSubmittedMail(ctx, exc)
	return exc, nil
}

func (svc *service) GetByID(ctx context.Context, id string) (Excuse, error) {
	return svc.repo.GetExcuse(ctx, id)
}

func (svc *service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Excuse, error) {
	return svc.repo.QueryExcuses(ctx, filter, ordering)
}

func (svc *service) QueryForMember(ctx context.Context, memberID string) ([]Excuse, error) {
	return svc.repo.QueryExcuses(ctx, &QueryFilter{MemberID: memberID}, nil)
}

// Approve transitions a pending or rejected request to approved.
// The stored attendance records are never touched: approval changes
// classification only through the next recomputation.
func (svc *service) Approve(ctx context.Context, id string, admin user.User) (Excuse, error) {
	exc, err := svc.repo.GetExcuse(ctx, id)
	if err != nil {
		return Excuse{}, err
	}
	if exc.Status == StatusApproved {
		return Excuse{}, core.NewValidationError(errAlreadyApproved)
	}

	// admin notes are retained for audit on an approval edit
	exc, err = svc.repo.UpdateExcuseStatus(ctx, exc.ID, StatusApproved, exc.AdminNotes, admin.ID, time.Now().UTC())
	if err != nil {
		return Excuse{}, err
	}

	svc.sendDecisionMail(ctx, exc)
	return exc, nil
}

// Decline transitions a pending or approved request to rejected, capturing
// the reason in the admin notes.
func (svc *service) Decline(ctx context.Context, id, reason string, admin user.User) (Excuse, error) {
	exc, err := svc.repo.GetExcuse(ctx, id)
	if err != nil {
		return Excuse{}, err
	}
	if exc.Status == StatusRejected {
		return Excuse{}, core.NewValidationError(errAlreadyRejected)
	}

	exc, err = svc.repo.UpdateExcuseStatus(ctx, exc.ID, StatusRejected, core.CleanString(reason), admin.ID, time.Now().UTC())
	if err != nil {
		return Excuse{}, err
	}

	svc.sendDecisionMail(ctx, exc)
	return exc, nil
}

// sendSubmittedMail announces a new paalam to the secretariat.
// Notification failures never block the submission.
func (svc *service) sendSubmittedMail(ctx context.Context, exc Excuse) {
	member, err := svc.usrSvc.GetByID(ctx, exc.MemberID)
	if err != nil {
		return
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{core.Conf.AdminEmail},
		Subject:      "New Paalam Submitted",
		TemplateName: "excusesubmitted",
		TemplateData: struct {
			Member user.User
			Excuse Excuse
		}{member, exc},
	})
}

// sendDecisionMail notifies the requesting member of an approval/decline.
// Notification failures never roll back the already-committed transition.
func (svc *service) sendDecisionMail(ctx context.Context, exc Excuse) {
	member, err := svc.usrSvc.GetByID(ctx, exc.MemberID)
	if err != nil {
		return
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: member.Name, Address: member.Email}},
		Subject:      "Paalam " + string(exc.Status),
		TemplateName: "excusestatus",
		TemplateData: struct {
			Member   user.User
			Excuse   Excuse
			Approved bool
		}{member, exc, exc.Status == StatusApproved},
	})
}
