package tests

import (
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classboom/classboom/core/activation"
	"github.com/classboom/classboom/core/user"
	"github.com/classboom/classboom/tests"
)

func Test_principalApi_auth(t *testing.T) {
	a := newApp(t, nil)
	teacher := testutil.CreateUser(t, a.UserRepo, a.school.ID, "Teacher", "teacher@wima.test", pwd, []string{user.RoleStaffTeacher}, true)
	orphan := testutil.CreateUser(t, a.UserRepo, "", "Orphan", "orphan@wima.test", pwd, []string{user.RoleAdmin}, true)

	a.run(t, []httpTest{
		{
			name: "auth required", method: http.MethodPost, path: "/v1/principals/student",
			wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken),
		},
		{
			name: "admin required", method: http.MethodPost, path: "/v1/principals/student", token: getToken(t, a.auth, teacher),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "token without school", method: http.MethodPost, path: "/v1/principals/student", token: getToken(t, a.auth, orphan),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "unknown kind", method: http.MethodPost, path: "/v1/principals/alumni", token: getToken(t, a.auth, a.admin),
			body: []byte(`{"name":"X"}`), wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "not found"}),
		},
	})
}

func Test_principalApi_create(t *testing.T) {
	a := newApp(t, nil)
	token := getToken(t, a.auth, a.admin)
	st := a.createPrincipal(t, activation.KindStudent, activation.NewPrincipal{Name: "Amani", StudentCode: "ABC123"})

	a.run(t, []httpTest{
		{
			name: "name required", method: http.MethodPost, path: "/v1/principals/student", token: token, body: []byte(`{}`),
			wantCode: http.StatusBadRequest, wantData: []byte(`{"name":"this field is required"}`),
		},
		{
			name: "duplicate student code", method: http.MethodPost, path: "/v1/principals/student", token: token,
			body:     []byte(`{"name":"Baraka","student_code":"abc123"}`),
			wantCode: http.StatusBadRequest, wantData: []byte(`{"student_code":"a student with this code already exists"}`),
		},
		{
			name: "unknown staff role", method: http.MethodPost, path: "/v1/principals/staff", token: token,
			body:     []byte(`{"name":"Jeanne","staff_role":"janitor"}`),
			wantCode: http.StatusBadRequest, wantData: []byte(`{"staff_role":"unknown staff role"}`),
		},
	})

	t.Run("parent", func(t *testing.T) {
		rec := a.do(httpTest{
			method: http.MethodPost, path: "/v1/principals/parent", token: token,
			body: marchallObj(t, activation.NewPrincipal{Name: "Mama Amani", Email: "mama@example.com", StudentIDs: []string{st.ID}}),
		})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var p activation.Principal
		decode(t, rec, &p)
		assert.Equal(t, a.school.ID, p.SchoolID)
		assert.Equal(t, activation.KindParent, p.Kind)
		assert.Equal(t, []string{st.ID}, p.StudentIDs)
		assert.False(t, p.CanLogin)
		assert.NotContains(t, rec.Body.String(), "ABC123")
	})

	t.Run("staff", func(t *testing.T) {
		rec := a.do(httpTest{
			method: http.MethodPost, path: "/v1/principals/staff", token: token,
			body: []byte(`{"name":"Jeanne","email":"jeanne@example.com","staff_role":"Accountant"}`),
		})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var p activation.Principal
		decode(t, rec, &p)
		assert.Equal(t, activation.StaffRoleAccountant, p.StaffRole)
	})
}

func Test_principalApi_retrieve(t *testing.T) {
	a := newApp(t, nil)
	token := getToken(t, a.auth, a.admin)
	st := a.createPrincipal(t, activation.KindStudent, activation.NewPrincipal{Name: "Amani"})
	foreign := testutil.CreatePrincipal(t, a.Activation, a.other.ID, activation.KindStudent, activation.NewPrincipal{Name: "Other"})

	a.run(t, []httpTest{
		{name: "found", path: "/v1/principals/student/" + st.ID, token: token, wantCode: http.StatusOK, wantData: marchallObj(t, st)},
		{
			name: "other kind", path: "/v1/principals/staff/" + st.ID, token: token,
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "principal not found"}),
		},
		{
			name: "other school", path: "/v1/principals/student/" + foreign.ID, token: token,
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "principal not found"}),
		},
		{
			name: "malformed id", path: "/v1/principals/student/lol", token: token,
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "principal not found"}),
		},
	})
}

func Test_principalApi_invite(t *testing.T) {
	a := newApp(t, nil)
	token := getToken(t, a.auth, a.admin)
	st := a.createPrincipal(t, activation.KindStudent, activation.NewPrincipal{Name: "Amani", Email: "amani@example.com"})
	noEmail := a.createPrincipal(t, activation.KindStudent, activation.NewPrincipal{Name: "Baraka"})
	foreign := testutil.CreatePrincipal(t, a.Activation, a.other.ID, activation.KindStudent,
		activation.NewPrincipal{Name: "Other", Email: "other@example.com"})

	invitePath := func(id string) string { return "/v1/principals/student/" + id + "/invite" }

	t.Run("success", func(t *testing.T) {
		rec := a.do(httpTest{method: http.MethodPost, path: invitePath(st.ID), token: token})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var inv activation.Invitation
		decode(t, rec, &inv)
		assert.True(t, strings.HasPrefix(inv.URL, a.Conf.FrontendBaseURL+"/activate/student/"), inv.URL)
		assert.Equal(t, a.Conf.Activation.TokenTTL, inv.ExpiresAt.Sub(inv.SentAt))
		assert.Empty(t, inv.Token)

		sent := a.Mail.SentMessages()
		require.Len(t, sent, 1)
		assert.Equal(t, "amani@example.com", sent[0].To[0].Address)
		assert.Contains(t, sent[0].TextContent, inv.URL)
	})

	a.run(t, []httpTest{
		{
			name: "no email", method: http.MethodPost, path: invitePath(noEmail.ID), token: token,
			wantCode: http.StatusBadRequest, wantData: []byte(`{"email":"an email address is required to send the invitation"}`),
		},
		{
			name: "other school", method: http.MethodPost, path: invitePath(foreign.ID), token: token,
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "principal not found"}),
		},
	})

	t.Run("send failure", func(t *testing.T) {
		a.Mail.Fail(errors.New("sendgrid: 503"))
		defer a.Mail.Fail(nil)

		rec := a.do(httpTest{method: http.MethodPost, path: invitePath(st.ID), token: token})
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusBadGateway,
			wantData: marchallObj(t, httpErr{Error: "service temporarily unavailable, please try again later"}),
		}, rec)
		assert.NotEmpty(t, a.Logger.Messages("error"))
	})
}

func Test_principalApi_revoke(t *testing.T) {
	a := newApp(t, nil)
	token := getToken(t, a.auth, a.admin)
	st := a.createPrincipal(t, activation.KindStudent, activation.NewPrincipal{Name: "Amani", Email: "amani@example.com"})
	stToken := a.invite(t, activation.KindStudent, st.ID)

	rec := a.do(httpTest{method: http.MethodDelete, path: "/v1/principals/student/" + st.ID + "/invite", token: token})
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

	a.run(t, []httpTest{
		{
			name: "revoked link", path: "/v1/activate/student/" + stToken, school: "wima",
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "invalid or expired activation link"}),
		},
	})

	p, err := a.Activation.GetPrincipal(a.ctx(), a.school.ID, activation.KindStudent, st.ID)
	require.NoError(t, err)
	assert.False(t, p.CanLogin)
	assert.False(t, p.Invited())
}
