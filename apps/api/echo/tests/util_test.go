package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/classboom/classboom/apps/api/echo"
	"github.com/classboom/classboom/core/activation"
	"github.com/classboom/classboom/core/school"
	"github.com/classboom/classboom/core/user"
	"github.com/classboom/classboom/services/ratelimit"
	"github.com/classboom/classboom/tests"
)

const pwd = "Zq7#Wx9!Kv"

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	school   string
	wantCode int
	wantData []byte
}

// app is an API server on an in-memory database with two schools and an admin in the first.
type app struct {
	*testutil.Env
	srv    echoapi.Server
	auth   *echoapi.Authenticator
	school school.School
	other  school.School
	admin  user.User
}

type appOption func(*echoapi.ServerDeps)

func withLimiter(l ratelimit.Limiter) appOption {
	return func(deps *echoapi.ServerDeps) { deps.Limiter = l }
}

func newApp(t *testing.T, env *testutil.Env, opts ...appOption) *app {
	t.Helper()
	if env == nil {
		env = testutil.NewEnv(t)
	}
	deps := echoapi.ServerDeps{
		Conf:           env.Conf,
		Logger:         env.Logger,
		Validate:       env.Validate,
		Translator:     env.Translator,
		UserSvc:        env.Users,
		SchoolSvc:      env.Schools,
		ActivationSvc:  env.Activation,
		Limiter:        ratelimit.NewMemoryLimiter(1000, time.Minute),
		DisableReqLogs: true,
	}
	for _, opt := range opts {
		opt(&deps)
	}

	a := &app{
		Env:  env,
		srv:  echoapi.NewServer(deps),
		auth: echoapi.NewAuthenticator(env.Conf),
	}
	a.school = testutil.CreateSchool(t, env.Schools, "Wima", "wima")
	a.other = testutil.CreateSchool(t, env.Schools, "Boboto", "boboto")
	a.admin = testutil.CreateUser(t, env.UserRepo, a.school.ID, "Admin", "admin@wima.test", pwd, []string{user.RoleAdmin}, true)
	return a
}

func (a *app) ctx() context.Context {
	return context.Background()
}

func (a *app) do(tt httpTest) *httptest.ResponseRecorder {
	method := tt.method
	if method == "" {
		method = http.MethodGet
	}
	req, rec := newAuthRequest(method, tt.path, tt.token, tt.body)
	if tt.school != "" {
		req.Header.Set("X-School", tt.school)
	}
	a.srv.ServeHTTP(rec, req)
	return rec
}

func (a *app) run(t *testing.T, tests []httpTest) {
	t.Helper()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checkCodeAndData(t, tt, a.do(tt))
		})
	}
}

func (a *app) createPrincipal(t *testing.T, kind activation.PrincipalKind, np activation.NewPrincipal) activation.Principal {
	t.Helper()
	return testutil.CreatePrincipal(t, a.Activation, a.school.ID, kind, np)
}

// invite issues an invitation through the API and returns the token of the activation link.
func (a *app) invite(t *testing.T, kind activation.PrincipalKind, id string) string {
	t.Helper()
	rec := a.do(httpTest{
		method: http.MethodPost,
		path:   "/v1/principals/" + string(kind) + "/" + id + "/invite",
		token:  getToken(t, a.auth, a.admin),
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var inv struct {
		URL string `json:"activation_url"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &inv))
	return path.Base(inv.URL)
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func getToken(t *testing.T, auth *echoapi.Authenticator, usr user.User) string {
	t.Helper()
	token, err := auth.GenerateToken(auth.UserClaims(usr))
	require.NoError(t, err)
	return token
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(obj)
	require.NoError(t, err)
	return data
}

// checkCodeAndData checks the response code and, when tt.wantData is set, the JSON body.
func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()
	assert.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
	if tt.wantData != nil {
		assert.JSONEq(t, string(tt.wantData), rec.Body.String())
	}
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}
