package tests

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	. "github.com/trezcool/himig/apps/api/echo"
	"github.com/trezcool/himig/core/excuse"
	"github.com/trezcool/himig/core/user"
	testutil "github.com/trezcool/himig/tests"
)

func Test_excuseApi_submit(t *testing.T) {
	app := setup(t)

	member := testutil.CreateUser(t, usrRepo, "Mira Santos", "mira", "mira@test.ph", user.SectionAlto, nil, true)
	memberToken := getToken(t, member)

	path := "/v1/excuses"

	t.Run("auth required", func(t *testing.T) {
		data := marchallObj(t, excuse.NewExcuse{Date: "2025-01-20", Kind: excuse.KindAbsence, Reason: "family event"})
		req, rec := newRequest(http.MethodPost, path, data)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)}, rec)
	})

	t.Run("submit", func(t *testing.T) {
		data := marchallObj(t, excuse.NewExcuse{Date: "2025-01-20", Kind: excuse.KindAbsence, Reason: "family event"})
		req, rec := newAuthRequest(http.MethodPost, path, memberToken, data)
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusCreated, rec.Code)

		var exc excuse.Excuse
		assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &exc))
		assert.NotEmpty(t, exc.ID)
		assert.Equal(t, member.ID, exc.MemberID)
		assert.Equal(t, excuse.StatusPending, exc.Status)
	})

	t.Run("timed kinds require an eta", func(t *testing.T) {
		data := marchallObj(t, excuse.NewExcuse{Date: "2025-01-21", Kind: excuse.KindLate, Reason: "class ran over"})
		req, rec := newAuthRequest(http.MethodPost, path, memberToken, data)
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "eta")
	})

	t.Run("one active request per date", func(t *testing.T) {
		data := marchallObj(t, excuse.NewExcuse{Date: "2025-01-20", Kind: excuse.KindLate, Reason: "traffic", ETA: "18:30"})
		req, rec := newAuthRequest(http.MethodPost, path, memberToken, data)
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func Test_excuseApi_listOwn(t *testing.T) {
	app := setup(t)

	member := testutil.CreateUser(t, usrRepo, "Mira Santos", "mira", "mira@test.ph", user.SectionAlto, nil, true)
	member2 := testutil.CreateUser(t, usrRepo, "Ben Reyes", "ben", "ben@test.ph", user.SectionTenor, nil, true)
	memberToken := getToken(t, member)

	testutil.CreateExcuse(t, excRepo, member.ID, "2025-01-20", excuse.KindAbsence, excuse.StatusPending)
	testutil.CreateExcuse(t, excRepo, member.ID, "2025-01-27", excuse.KindLate, excuse.StatusPending)
	testutil.CreateExcuse(t, excRepo, member2.ID, "2025-01-20", excuse.KindAbsence, excuse.StatusPending)

	req, rec := newAuthRequest(http.MethodGet, "/v1/excuses", memberToken)
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	var excuses []excuse.Excuse
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &excuses))
	if assert.Len(t, excuses, 2) {
		for _, exc := range excuses {
			assert.Equal(t, member.ID, exc.MemberID)
		}
	}
}

func Test_excuseApi_adminQuery(t *testing.T) {
	app := setup(t)

	admin := testutil.CreateUser(t, usrRepo, "Sec Retary", "secretary", "sec@test.ph", user.SectionBass, user.AllRoles, true)
	member := testutil.CreateUser(t, usrRepo, "Mira Santos", "mira", "mira@test.ph", user.SectionAlto, nil, true)
	member2 := testutil.CreateUser(t, usrRepo, "Ben Reyes", "ben", "ben@test.ph", user.SectionTenor, nil, true)
	adminToken := getToken(t, admin)
	memberToken := getToken(t, member)

	testutil.CreateExcuse(t, excRepo, member.ID, "2025-01-20", excuse.KindAbsence, excuse.StatusPending)
	testutil.CreateExcuse(t, excRepo, member2.ID, "2025-01-20", excuse.KindLate, excuse.StatusApproved, admin.ID)

	path := "/v1/admin/excuses"

	t.Run("admins only", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, path, memberToken)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)}, rec)
	})

	t.Run("all requests with submitter profiles", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, path, adminToken)
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)

		var results []AdminExcuse
		assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &results))
		if assert.Len(t, results, 2) {
			for _, res := range results {
				assert.Equal(t, res.MemberID, res.Member.ID)
				assert.NotEmpty(t, res.Member.Name)
			}
		}
	})

	t.Run("filter by status", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, path+"?status=pending", adminToken)
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)

		var results []AdminExcuse
		assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &results))
		if assert.Len(t, results, 1) {
			assert.Equal(t, member.ID, results[0].MemberID)
		}
	})

	t.Run("filter by voice section", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, path+"?section="+user.SectionTenor, adminToken)
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)

		var results []AdminExcuse
		assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &results))
		if assert.Len(t, results, 1) {
			assert.Equal(t, member2.ID, results[0].MemberID)
			assert.Equal(t, user.SectionTenor, results[0].Member.VoiceSection)
		}
	})
}

func Test_excuseApi_adminReview(t *testing.T) {
	app := setup(t)

	admin := testutil.CreateUser(t, usrRepo, "Sec Retary", "secretary", "sec@test.ph", user.SectionBass, user.AllRoles, true)
	member := testutil.CreateUser(t, usrRepo, "Mira Santos", "mira", "mira@test.ph", user.SectionAlto, nil, true)
	adminToken := getToken(t, admin)
	memberToken := getToken(t, member)

	exc := testutil.CreateExcuse(t, excRepo, member.ID, "2025-01-20", excuse.KindAbsence, excuse.StatusPending)
	path := "/v1/admin/excuses/" + exc.ID

	t.Run("admins only", func(t *testing.T) {
		data := marchallObj(t, ReviewRequest{Status: excuse.StatusApproved})
		req, rec := newAuthRequest(http.MethodPatch, path, memberToken, data)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)}, rec)
	})

	t.Run("approve", func(t *testing.T) {
		data := marchallObj(t, ReviewRequest{Status: excuse.StatusApproved})
		req, rec := newAuthRequest(http.MethodPatch, path, adminToken, data)
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)

		var approved excuse.Excuse
		assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &approved))
		assert.Equal(t, excuse.StatusApproved, approved.Status)
		assert.Equal(t, admin.ID, approved.DecidedBy)
	})

	t.Run("approving twice is invalid", func(t *testing.T) {
		data := marchallObj(t, ReviewRequest{Status: excuse.StatusApproved})
		req, rec := newAuthRequest(http.MethodPatch, path, adminToken, data)
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("decline with notes", func(t *testing.T) {
		data := marchallObj(t, ReviewRequest{Status: excuse.StatusRejected, Notes: "insufficient documentation"})
		req, rec := newAuthRequest(http.MethodPatch, path, adminToken, data)
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)

		var declined excuse.Excuse
		assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &declined))
		assert.Equal(t, excuse.StatusRejected, declined.Status)
		assert.Equal(t, "insufficient documentation", declined.AdminNotes)
	})

	t.Run("status must be a decision", func(t *testing.T) {
		data := marchallObj(t, ReviewRequest{Status: excuse.StatusPending})
		req, rec := newAuthRequest(http.MethodPatch, path, adminToken, data)
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown request", func(t *testing.T) {
		data := marchallObj(t, ReviewRequest{Status: excuse.StatusApproved})
		req, rec := newAuthRequest(http.MethodPatch, "/v1/admin/excuses/nope", adminToken, data)
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}
