package tests

import (
	"net/http"
	"testing"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/classboom/classboom/apps/api/echo"
	"github.com/classboom/classboom/core/user"
	"github.com/classboom/classboom/tests"
)

func Test_home(t *testing.T) {
	a := newApp(t, nil)
	rec := a.do(httpTest{path: "/"})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Welcome to ClassBoom API!", rec.Body.String())
}

func Test_userApi_login(t *testing.T) {
	a := newApp(t, nil)
	testutil.CreateUser(t, a.UserRepo, a.school.ID, "Gone", "gone@wima.test", pwd, nil, false)

	body := func(email, pwd string) []byte {
		return marchallObj(t, echoapi.LoginRequest{Email: email, Password: pwd})
	}

	a.run(t, []httpTest{
		{
			name: "missing fields", method: http.MethodPost, path: "/v1/users/login", body: []byte(`{}`),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"email":"this field is required","password":"this field is required"}`),
		},
		{
			name: "unknown email", method: http.MethodPost, path: "/v1/users/login", body: body("nobody@wima.test", pwd),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name: "wrong password", method: http.MethodPost, path: "/v1/users/login", body: body("admin@wima.test", "nope"),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name: "deactivated", method: http.MethodPost, path: "/v1/users/login", body: body("gone@wima.test", pwd),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "account deactivated"}),
		},
	})

	t.Run("success", func(t *testing.T) {
		rec := a.do(httpTest{method: http.MethodPost, path: "/v1/users/login", body: body(" ADMIN@wima.test ", pwd)})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var resp echoapi.LoginResponse
		decode(t, rec, &resp)

		claims := new(echoapi.Claims)
		_, err := jwt.ParseWithClaims(resp.Token, claims, func(*jwt.Token) (interface{}, error) {
			return []byte(a.Conf.SecretKey), nil
		})
		require.NoError(t, err)
		assert.Equal(t, a.admin.ID, claims.Subject)
		assert.Equal(t, a.school.ID, claims.SchoolID)
		assert.True(t, claims.IsAdmin)

		usr, err := a.Users.GetByID(a.ctx(), a.admin.ID)
		require.NoError(t, err)
		assert.False(t, usr.LastLogin.IsZero())
	})
}

func Test_userApi_refreshToken(t *testing.T) {
	a := newApp(t, nil)
	gone := testutil.CreateUser(t, a.UserRepo, a.school.ID, "Gone", "gone@wima.test", pwd, nil, false)

	stale := a.auth.UserClaims(a.admin, time.Now().Add(-a.Conf.Server.JWTRefreshExpirationDelta-time.Minute).Unix())
	staleToken, err := a.auth.GenerateToken(stale)
	require.NoError(t, err)

	a.run(t, []httpTest{
		{
			name: "auth required", method: http.MethodPost, path: "/v1/users/token-refresh",
			wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken),
		},
		{
			name: "deactivated", method: http.MethodPost, path: "/v1/users/token-refresh", token: getToken(t, a.auth, gone),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "account deactivated"}),
		},
		{
			name: "refresh expired", method: http.MethodPost, path: "/v1/users/token-refresh", token: staleToken,
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "refresh has expired"}),
		},
		{
			name: "unknown user", method: http.MethodPost, path: "/v1/users/token-refresh",
			token:    getToken(t, a.auth, user.User{ID: "00000000-0000-4000-8000-999999999999", SchoolID: a.school.ID}),
			wantCode: http.StatusUnauthorized, wantData: marchallObj(t, httpErr{Error: "user not authenticated"}),
		},
		{
			name: "success", method: http.MethodPost, path: "/v1/users/token-refresh", token: getToken(t, a.auth, a.admin),
			wantCode: http.StatusOK,
		},
	})
}
