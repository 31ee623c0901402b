package main

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classboom/classboom/core"
	"github.com/classboom/classboom/core/activation"
	"github.com/classboom/classboom/core/school"
	"github.com/classboom/classboom/core/user"
	"github.com/classboom/classboom/tests"
)

const pwd = "Zq7#Wx9!Kv"

func setup(t *testing.T) (*commandLine, *testutil.Env, *bytes.Buffer) {
	env := testutil.NewEnv(t)
	out := new(bytes.Buffer)
	return &commandLine{
		schools:    env.Schools,
		users:      env.Users,
		activation: env.Activation,
		validate:   env.Validate,
		out:        out,
	}, env, out
}

func withPassword(t *testing.T, pwd string) {
	orig := readPasswordFunc
	readPasswordFunc = func(int) ([]byte, error) { return []byte(pwd), nil }
	t.Cleanup(func() { readPasswordFunc = orig })
}

type cliTest struct {
	name       string
	args       []string // without program name
	pwd        string
	wantErr    error
	wantErrStr string
	invalid    bool
}

func (tt cliTest) check(t *testing.T, err error) {
	t.Helper()
	switch {
	case tt.invalid:
		_, isVErrs := errors.Cause(err).(validator.ValidationErrors)
		assert.True(t, isVErrs || core.IsValidationError(err), err)
	case tt.wantErr != nil:
		assert.Equal(t, tt.wantErr, errors.Cause(err))
	case tt.wantErrStr != "":
		require.Error(t, err)
		assert.Equal(t, tt.wantErrStr, err.Error())
	default:
		assert.NoError(t, err)
	}
}

func Test_commandLine_migrate(t *testing.T) {
	cli, _, _ := setup(t)

	orig := migrateFunc
	defer func() { migrateFunc = orig }()
	migrateFunc = func(db *sql.DB, command string, args ...string) error {
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to", "down-to":
			if len(args) == 0 {
				return fmt.Errorf("%s must be of form: goose [OPTIONS] DRIVER DBSTRING %s VERSION", command, command)
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		case "create":
			if len(args) == 0 {
				return fmt.Errorf("create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]")
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}

	tests := []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "down-to: no args", args: []string{"migrate", "down-to"}, wantErrStr: "down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "create", args: []string{"migrate", "create", "course", "sql"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, cli.run(append([]string{"admin"}, tt.args...)))
		})
	}
}

func Test_commandLine_addSchool(t *testing.T) {
	cli, env, out := setup(t)

	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "no args", args: []string{"addschool"}, wantErr: errHelp},
		{name: "bad slug", args: []string{"addschool", "-name", "Wima", "-slug", "Wi ma"}, wantErrStr: "slug: only lowercase letters, digits and dashes are allowed"},
		{name: "created", args: []string{"addschool", "-name", "Wima", "-slug", "wima"}},
		{name: "duplicate slug", args: []string{"addschool", "-name", "Wima 2", "-slug", "wima"}, invalid: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, cli.run(append([]string{"admin"}, tt.args...)))
		})
	}

	sch, err := env.Schools.Resolve(context.Background(), "wima")
	require.NoError(t, err)
	assert.Contains(t, out.String(), sch.ID)
}

func Test_commandLine_addUser(t *testing.T) {
	cli, env, _ := setup(t)
	sch := testutil.CreateSchool(t, env.Schools, "Wima", "wima")
	other := testutil.CreateSchool(t, env.Schools, "Boboto", "boboto")

	tests := []cliTest{
		{name: "no args", args: []string{"adduser"}, wantErr: errHelp},
		{name: "no password", args: []string{"adduser", "-school", "wima", "-email", "admin@wima.test"}, wantErr: errHelp},
		{name: "unknown school", args: []string{"adduser", "-school", "lol", "-email", "admin@wima.test"}, pwd: pwd, wantErr: school.ErrNotFound},
		{name: "created", args: []string{"adduser", "-school", "wima", "-name", "Admin", "-email", "admin@wima.test", "-admin"}, pwd: pwd},
		{name: "updated", args: []string{"adduser", "-school", sch.ID, "-email", "ADMIN@wima.test"}, pwd: pwd + "2"},
		{name: "other school", args: []string{"adduser", "-school", other.Slug, "-email", "admin@wima.test"}, pwd: pwd, invalid: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			withPassword(t, tt.pwd)
			tt.check(t, cli.run(append([]string{"admin"}, tt.args...)))
		})
	}

	usr, err := env.Users.Authenticate(context.Background(), "admin@wima.test", pwd+"2")
	require.NoError(t, err)
	assert.Equal(t, sch.ID, usr.SchoolID)
	assert.Equal(t, "Admin", usr.Name)
	assert.True(t, usr.IsAdmin())
}

func Test_commandLine_resetPassword(t *testing.T) {
	cli, env, _ := setup(t)
	sch := testutil.CreateSchool(t, env.Schools, "Wima", "wima")
	usr := testutil.CreateUser(t, env.UserRepo, sch.ID, "User", "awe@test.cd", "mdr", nil, true)

	tests := []cliTest{
		{name: "no args", args: []string{"resetpassword"}, wantErr: errHelp},
		{name: "email but no password", args: []string{"resetpassword", "-email", "lol@test.cd"}, wantErr: errHelp},
		{name: "user not found", args: []string{"resetpassword", "-email", "lol@test.cd"}, pwd: pwd, wantErr: user.ErrNotFound},
		{name: "weak password", args: []string{"resetpassword", "-email", usr.Email}, pwd: "lol", wantErrStr: "password: password must contain at least 8 characters"},
		{name: "reset", args: []string{"resetpassword", "-email", usr.Email}, pwd: pwd},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			withPassword(t, tt.pwd)
			tt.check(t, cli.run(append([]string{"admin"}, tt.args...)))
		})
	}

	_, err := env.Users.Authenticate(context.Background(), usr.Email, pwd)
	assert.NoError(t, err)
}

func Test_commandLine_invite(t *testing.T) {
	cli, env, out := setup(t)
	sch := testutil.CreateSchool(t, env.Schools, "Wima", "wima")
	st := testutil.CreatePrincipal(t, env.Activation, sch.ID, activation.KindStudent,
		activation.NewPrincipal{Name: "Amani", Email: "amani@example.com"})

	tests := []cliTest{
		{name: "unknown kind", args: []string{"invite", "-school", "wima", "-kind", "alumni", "-id", st.ID}, invalid: true},
		{name: "malformed id", args: []string{"invite", "-school", "wima", "-kind", "student", "-id", "lol"}, invalid: true},
		{name: "unknown school", args: []string{"invite", "-school", "lol", "-kind", "student", "-id", st.ID}, wantErr: school.ErrNotFound},
		{name: "unknown principal", args: []string{"invite", "-school", "wima", "-kind", "parent", "-id", st.ID}, wantErr: activation.ErrPrincipalNotFound},
		{name: "sent", args: []string{"invite", "-school", "wima", "-kind", "student", "-id", st.ID}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, cli.run(append([]string{"admin"}, tt.args...)))
		})
	}

	require.Len(t, env.Mail.SentMessages(), 1)
	assert.Contains(t, out.String(), env.Conf.FrontendBaseURL+"/activate/student/")
}
