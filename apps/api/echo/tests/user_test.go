package tests

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	. "github.com/trezcool/himig/apps/api/echo"
	"github.com/trezcool/himig/core/user"
	emailsvc "github.com/trezcool/himig/services/email"
	testutil "github.com/trezcool/himig/tests"
)

func Test_userApi_login(t *testing.T) {
	app := setup(t)

	member := testutil.CreateUser(t, usrRepo, "Mira Santos", "mira", "mira@test.ph", user.SectionAlto, nil, true)
	testutil.CreateUser(t, usrRepo, "Ex Member", "exmember", "ex@test.ph", user.SectionTenor, nil, false)

	path := "/v1/users/login"

	t.Run("login", func(t *testing.T) {
		data := marchallObj(t, LoginRequest{Username: member.Username, Password: "Dev!234x"})
		req, rec := newRequest(http.MethodPost, path, data)
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)

		var resp LoginResponse
		assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.NotEmpty(t, resp.Token)
	})

	t.Run("wrong password", func(t *testing.T) {
		data := marchallObj(t, LoginRequest{Username: member.Username, Password: "nope"})
		req, rec := newRequest(http.MethodPost, path, data)
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown user", func(t *testing.T) {
		data := marchallObj(t, LoginRequest{Username: "ghost", Password: "Dev!234x"})
		req, rec := newRequest(http.MethodPost, path, data)
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("deactivated account", func(t *testing.T) {
		data := marchallObj(t, LoginRequest{Username: "exmember", Password: "Dev!234x"})
		req, rec := newRequest(http.MethodPost, path, data)
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}

func Test_userApi_resetPassword(t *testing.T) {
	app := setup(t)

	member := testutil.CreateUser(t, usrRepo, "Mira Santos", "mira", "mira@test.ph", user.SectionAlto, nil, true)
	emailsvc.ClearSentMessages()

	data := marchallObj(t, PasswordResetRequest{Email: member.Email})
	req, rec := newRequest(http.MethodPost, "/v1/users/password-reset", data)
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	if assert.Len(t, emailsvc.SentMessages, 1) {
		assert.Equal(t, member.Email, emailsvc.SentMessages[0].To[0].Address)
	}

	// unknown emails get the same response and no mail
	emailsvc.ClearSentMessages()
	data = marchallObj(t, PasswordResetRequest{Email: "ghost@test.ph"})
	req, rec = newRequest(http.MethodPost, "/v1/users/password-reset", data)
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, emailsvc.SentMessages)
}

func Test_userApi_register(t *testing.T) {
	app := setup(t)

	admin := testutil.CreateUser(t, usrRepo, "Sec Retary", "secretary", "sec@test.ph", user.SectionBass, []string{user.RoleAdminSecretary}, true)
	member := testutil.CreateUser(t, usrRepo, "Mira Santos", "mira", "mira@test.ph", user.SectionAlto, nil, true)
	adminToken := getToken(t, admin)
	memberToken := getToken(t, member)

	path := "/v1/users/register"
	newUsr := user.NewUser{
		Name:            "Ben Reyes",
		Username:        "benreyes",
		Email:           "ben@test.ph",
		VoiceSection:    user.SectionTenor,
		Password:        "Dev!234x",
		PasswordConfirm: "Dev!234x",
	}

	t.Run("admins only", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, path, memberToken, marchallObj(t, newUsr))
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)}, rec)
	})

	t.Run("register", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, path, adminToken, marchallObj(t, newUsr))
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusCreated, rec.Code)

		var usr user.User
		assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &usr))
		assert.NotEmpty(t, usr.ID)
		assert.Equal(t, "benreyes", usr.Username)
		assert.Equal(t, user.SectionTenor, usr.VoiceSection)
	})

	t.Run("username already taken", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, path, adminToken, marchallObj(t, newUsr))
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("cannot grant a role above your own", func(t *testing.T) {
		data := newUsr
		data.Username = "benreyes2"
		data.Email = "ben2@test.ph"
		data.Roles = []string{user.RoleAdminOwner}
		req, rec := newAuthRequest(http.MethodPost, path, adminToken, marchallObj(t, data))
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "roles")
	})
}

func Test_userApi_query(t *testing.T) {
	app := setup(t)

	admin := testutil.CreateUser(t, usrRepo, "Sec Retary", "secretary", "sec@test.ph", user.SectionBass, user.AllRoles, true)
	member := testutil.CreateUser(t, usrRepo, "Mira Santos", "mira", "mira@test.ph", user.SectionAlto, nil, true)
	testutil.CreateUser(t, usrRepo, "Ben Reyes", "benreyes", "ben@test.ph", user.SectionTenor, nil, true)
	adminToken := getToken(t, admin)
	memberToken := getToken(t, member)

	path := "/v1/users"

	t.Run("admins only", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, path, memberToken)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)}, rec)
	})

	t.Run("all members", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, path, adminToken)
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)

		var users []user.User
		assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &users))
		assert.Len(t, users, 3)
	})

	t.Run("filter by voice section", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, path+"?voice_section="+user.SectionAlto, adminToken)
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)

		var users []user.User
		assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &users))
		if assert.Len(t, users, 1) {
			assert.Equal(t, member.ID, users[0].ID)
		}
	})

	t.Run("search", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, path+"?search=reyes", adminToken)
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)

		var users []user.User
		assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &users))
		assert.Len(t, users, 1)
	})

	t.Run("voice sections are visible to all members", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, path+"/voice-sections", memberToken)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marchallObj(t, user.VoiceSections)}, rec)
	})
}

func Test_userApi_detail(t *testing.T) {
	app := setup(t)

	admin := testutil.CreateUser(t, usrRepo, "Sec Retary", "secretary", "sec@test.ph", user.SectionBass, user.AllRoles, true)
	member := testutil.CreateUser(t, usrRepo, "Mira Santos", "mira", "mira@test.ph", user.SectionAlto, nil, true)
	member2 := testutil.CreateUser(t, usrRepo, "Ben Reyes", "benreyes", "ben@test.ph", user.SectionTenor, nil, true)
	adminToken := getToken(t, admin)
	memberToken := getToken(t, member)

	path := "/v1/users/"

	t.Run("own profile", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, path+member.ID, memberToken)
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)

		var usr user.User
		assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &usr))
		assert.Equal(t, member.ID, usr.ID)
	})

	t.Run("members cannot read other profiles", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, path+member2.ID, memberToken)
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("members update their own profile", func(t *testing.T) {
		data := marchallObj(t, user.UpdateUser{Name: "Mira R. Santos", Committee: "logistics"})
		req, rec := newAuthRequest(http.MethodPut, path+member.ID, memberToken, data)
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)

		var usr user.User
		assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &usr))
		assert.Equal(t, "Mira R. Santos", usr.Name)
		assert.Equal(t, "logistics", usr.Committee)
	})

	t.Run("members cannot change their own roles", func(t *testing.T) {
		data := marchallObj(t, user.UpdateUser{Roles: []string{user.RoleAdminOwner}})
		req, rec := newAuthRequest(http.MethodPut, path+member.ID, memberToken, data)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)}, rec)
	})

	t.Run("admins deactivate members", func(t *testing.T) {
		isActive := false
		data := marchallObj(t, user.UpdateUser{IsActive: &isActive})
		req, rec := newAuthRequest(http.MethodPut, path+member2.ID, adminToken, data)
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)

		var usr user.User
		assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &usr))
		assert.False(t, usr.Active())
	})

	t.Run("members cannot delete accounts", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, path+member.ID, memberToken)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)}, rec)
	})

	t.Run("admins cannot delete themselves", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, path+admin.ID, adminToken)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)}, rec)
	})

	t.Run("admins delete accounts", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, path+member2.ID, adminToken)
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNoContent, rec.Code)

		req, rec = newAuthRequest(http.MethodGet, path+member2.ID, adminToken)
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}
