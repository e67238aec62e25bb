package echoapi

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/himig/core/attendance"
	"github.com/trezcool/himig/core/user"
)

type attendanceApi struct {
	svc    attendance.ServiceInterface
	usrSvc user.ServiceInterface
}

func registerAttendanceAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	svc attendance.ServiceInterface,
	usrSvc user.ServiceInterface,
) {
	api := attendanceApi{svc: svc, usrSvc: usrSvc}

	sg := g.Group("/sessions", jwt)
	sg.GET("", api.querySessions)
	sg.POST("", api.createSession, adminMiddleware())
	sg.PUT("/:id", api.updateSession, adminMiddleware())

	ag := g.Group("/attendance", jwt)
	ag.POST("/check-in", api.checkIn)
	ag.GET("/report", api.report)
}

// Handlers

func (api *attendanceApi) createSession(ctx echo.Context) error {
	var data attendance.NewSession
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSession")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	sess, err := api.svc.CreateSession(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating session")
	}
	return ctx.JSON(http.StatusCreated, sess)
}

func (api *attendanceApi) updateSession(ctx echo.Context) error {
	var data attendance.UpdateSession
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateSession")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	sess, err := api.svc.UpdateSession(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		if errors.Cause(err) == attendance.ErrSessionNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "updating session")
	}
	return ctx.JSON(http.StatusOK, sess)
}

func (api *attendanceApi) querySessions(ctx echo.Context) error {
	sessions, err := api.svc.QuerySessions(ctx.Request().Context(), ctx.QueryParam("from"), ctx.QueryParam("to"))
	if err != nil {
		return errors.Wrap(err, "querying sessions")
	}
	if sessions == nil {
		sessions = []attendance.Session{}
	}
	return ctx.JSON(http.StatusOK, sessions)
}

func (api *attendanceApi) checkIn(ctx echo.Context) error {
	var data attendance.CheckIn
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to CheckIn")
	}

	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	// only admins may record a check-in on behalf of another member
	if data.MemberID == "" || data.MemberID == ctxUsr.ID {
		data.MemberID = ctxUsr.ID
	} else if !ctxUsr.IsAdmin() {
		return errHttpForbidden
	}

	if err := data.Validate(); err != nil {
		return err
	}

	log, err := api.svc.CheckIn(ctx.Request().Context(), data, time.Now())
	if err != nil {
		return errors.Wrap(err, "checking in")
	}
	return ctx.JSON(http.StatusCreated, log)
}

func (api *attendanceApi) report(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	memberID := ctx.QueryParam("member")
	if memberID == "" {
		memberID = ctxUsr.ID
	} else if memberID != ctxUsr.ID && !ctxUsr.IsAdmin() {
		return errHttpForbidden
	}

	report, err := api.svc.Report(ctx.Request().Context(), memberID, ctx.QueryParam("from"), ctx.QueryParam("to"))
	if err != nil {
		return errors.Wrap(err, "building report")
	}
	return ctx.JSON(http.StatusOK, report)
}
