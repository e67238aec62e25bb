package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/himig/core"
	"github.com/trezcool/himig/core/excuse"
	"github.com/trezcool/himig/core/user"
)

type excuseApi struct {
	svc    excuse.ServiceInterface
	usrSvc user.ServiceInterface
}

func registerExcuseAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	svc excuse.ServiceInterface,
	usrSvc user.ServiceInterface,
) {
	api := excuseApi{svc: svc, usrSvc: usrSvc}

	eg := g.Group("/excuses", jwt)
	eg.POST("", api.submit)
	eg.GET("", api.listOwn)

	adg := g.Group("/admin/excuses", jwt, adminMiddleware())
	adg.GET("", api.adminQuery)
	adg.PATCH("/:id", api.adminReview)
}

// Handlers

func (api *excuseApi) submit(ctx echo.Context) error {
	var data excuse.NewExcuse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewExcuse")
	}

	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	data.MemberID = ctxUsr.ID

	if err := data.Validate(); err != nil {
		return err
	}

	exc, err := api.svc.Submit(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "submitting excuse")
	}
	return ctx.JSON(http.StatusCreated, exc)
}

func (api *excuseApi) listOwn(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	excuses, err := api.svc.QueryForMember(ctx.Request().Context(), ctxUsr.ID)
	if err != nil {
		return errors.Wrap(err, "querying excuses")
	}
	if excuses == nil {
		excuses = []excuse.Excuse{}
	}
	return ctx.JSON(http.StatusOK, excuses)
}

// AdminExcuse is an excuse request joined with its submitter's profile.
type AdminExcuse struct {
	excuse.Excuse
	Member MemberSummary `json:"member"`
}

type MemberSummary struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	VoiceSection string `json:"voice_section"`
	Committee    string `json:"committee"`
}

func (api *excuseApi) adminQuery(ctx echo.Context) error {
	filter := &excuse.QueryFilter{
		Status:   excuse.Status(ctx.QueryParam("status")),
		Kind:     excuse.Kind(ctx.QueryParam("kind")),
		DateFrom: ctx.QueryParam("from"),
		DateTo:   ctx.QueryParam("to"),
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	excuses, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying excuses")
	}

	section := core.CleanString(ctx.QueryParam("section"), true /* lower */)
	committee := core.CleanString(ctx.QueryParam("committee"))

	results := make([]AdminExcuse, 0, len(excuses))
	members := make(map[string]user.User, len(excuses))
	for _, exc := range excuses {
		member, ok := members[exc.MemberID]
		if !ok {
			member, err = api.usrSvc.GetByID(ctx.Request().Context(), exc.MemberID)
			if err != nil {
				if errors.Cause(err) == user.ErrNotFound {
					continue // submitter since deleted
				}
				return errors.Wrap(err, "finding submitter")
			}
			members[exc.MemberID] = member
		}
		if section != "" && member.VoiceSection != section {
			continue
		}
		if committee != "" && member.Committee != committee {
			continue
		}
		results = append(results, AdminExcuse{
			Excuse: exc,
			Member: MemberSummary{
				ID:           member.ID,
				Name:         member.Name,
				VoiceSection: member.VoiceSection,
				Committee:    member.Committee,
			},
		})
	}
	return ctx.JSON(http.StatusOK, results)
}

type ReviewRequest struct {
	Status excuse.Status `json:"status" validate:"required,oneof=approved rejected"`
	Notes  string        `json:"notes"`
}

func (rr *ReviewRequest) Validate() error {
	rr.Notes = core.CleanString(rr.Notes)
	return core.Validate.Struct(rr)
}

func (api *excuseApi) adminReview(ctx echo.Context) error {
	var data ReviewRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ReviewRequest")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	var exc excuse.Excuse
	if data.Status == excuse.StatusApproved {
		exc, err = api.svc.Approve(ctx.Request().Context(), ctx.Param("id"), ctxUsr)
	} else {
		exc, err = api.svc.Decline(ctx.Request().Context(), ctx.Param("id"), data.Notes, ctxUsr)
	}
	if err != nil {
		if errors.Cause(err) == excuse.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "reviewing excuse")
	}
	return ctx.JSON(http.StatusOK, exc)
}
