package activation

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classboom/classboom/core"
	"github.com/classboom/classboom/core/user"
)

func TestNewToken(t *testing.T) {
	seen := make(map[string]bool, 100)
	for i := 0; i < 100; i++ {
		token, err := NewToken()
		require.NoError(t, err)
		assert.Len(t, token, 64)
		assert.True(t, core.IsHex64(token), token)
		assert.False(t, seen[token], "duplicate token")
		seen[token] = true
	}
}

func TestTokenExpired(t *testing.T) {
	ttl := 48 * time.Hour
	sent := time.Date(2026, 1, 10, 8, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		now     time.Time
		expired bool
	}{
		{"just issued", sent, false},
		{"47h later", sent.Add(47 * time.Hour), false},
		{"exactly 48h later", sent.Add(ttl), false},
		{"48h and 1ns later", sent.Add(ttl + 1), true},
		{"49h later", sent.Add(49 * time.Hour), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expired, tokenExpired(sent, tt.now, ttl))
		})
	}

	assert.True(t, tokenExpired(time.Time{}, sent, ttl), "never sent")
}

func TestTokenExpiredProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 500

	properties := gopter.NewProperties(parameters)
	ttl := 48 * time.Hour
	sent := time.Date(2026, 1, 10, 8, 0, 0, 0, time.UTC)

	properties.Property("a token is valid iff no more than 48h elapsed", prop.ForAll(
		func(elapsedSec int64) bool {
			elapsed := time.Duration(elapsedSec) * time.Second
			return tokenExpired(sent, sent.Add(elapsed), ttl) == (elapsed > ttl)
		},
		gen.Int64Range(0, int64(96*time.Hour/time.Second)),
	))

	properties.Property("expiry does not depend on the time zone", prop.ForAll(
		func(elapsedSec int64, offsetHours int) bool {
			zone := time.FixedZone("test", offsetHours*3600)
			now := sent.Add(time.Duration(elapsedSec) * time.Second)
			return tokenExpired(sent, now.In(zone), ttl) == tokenExpired(sent.In(zone), now, ttl)
		},
		gen.Int64Range(0, int64(96*time.Hour/time.Second)),
		gen.IntRange(-12, 14),
	))

	properties.TestingRun(t)
}

func TestActivationURL(t *testing.T) {
	token := "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"
	assert.Equal(t,
		"https://app.classboom.io/activate/parent/"+token,
		ActivationURL("https://app.classboom.io/", KindParent, token),
	)
}

func TestNewStudentCode(t *testing.T) {
	code, err := newStudentCode()
	require.NoError(t, err)
	assert.Len(t, code, studentCodeLen)
	assert.Equal(t, normalizeStudentCode(code), code)
}

func TestParseKind(t *testing.T) {
	for _, kind := range Kinds {
		got, err := ParseKind(" " + string(kind) + " ")
		require.NoError(t, err)
		assert.Equal(t, kind, got)
	}
	_, err := ParseKind("teacher")
	assert.Equal(t, ErrUnknownKind, errors.Cause(err))
}

func TestStaffRole_Permissions(t *testing.T) {
	for _, role := range StaffRoles {
		t.Run(string(role), func(t *testing.T) {
			perms, err := role.Permissions()
			require.NoError(t, err)
			assert.NotEmpty(t, perms)

			for _, r := range role.UserRoles() {
				assert.Contains(t, user.AllRoles, r)
			}

			parsed, err := ParseStaffRole(string(role))
			require.NoError(t, err)
			assert.Equal(t, role, parsed)
		})
	}

	adminPerms, _ := StaffRoleAdmin.Permissions()
	teacherPerms, _ := StaffRoleTeacher.Permissions()
	assert.Subset(t, adminPerms, teacherPerms)
	assert.NotContains(t, teacherPerms, PermPayrollWrite)

	_, err := StaffRole("janitor").Permissions()
	assert.Equal(t, ErrUnknownStaffRole, errors.Cause(err))

	_, err = ParseStaffRole("janitor")
	assert.Equal(t, ErrUnknownStaffRole, errors.Cause(err))
}

func TestFailure(t *testing.T) {
	root := errors.New("smtp: 554 rejected")
	err := errors.Wrap(fail(ErrInvitationFailed, root), "issuing")

	assert.Equal(t, ErrInvitationFailed, errors.Cause(err))
	assert.True(t, IsExternalFailure(err))
	assert.True(t, errors.Is(err, root))
	assert.Contains(t, err.Error(), "smtp: 554 rejected")

	assert.False(t, IsExternalFailure(ErrTokenNotFound))
	assert.True(t, IsNotFoundOrExpired(errors.WithStack(ErrTokenExpired)))
	assert.False(t, IsNotFoundOrExpired(ErrStudentCodeMismatch))
}
