package inmemdb

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classboom/classboom/core/activation"
)

const (
	schoolID = "00000000-0000-4000-8000-000000000001"
	otherID  = "00000000-0000-4000-8000-000000000002"
	token    = "5f0c0a6d2b1e4e3f9a8b7c6d5e4f3a2b1c0d9e8f7a6b5c4d3e2f1a0b9c8d7e6f"
)

func TestPrincipalRepository(t *testing.T) {
	ctx := context.Background()
	db := Open()
	repo := NewPrincipalRepository(db)

	st, err := repo.CreatePrincipal(ctx, activation.Principal{
		ID: "st1", SchoolID: schoolID, Kind: activation.KindStudent, Name: "Amani", StudentCode: "AB12CD",
	})
	require.NoError(t, err)
	_, err = repo.CreatePrincipal(ctx, activation.Principal{
		ID: "st2", SchoolID: schoolID, Kind: activation.KindStudent, Name: "Bahati", StudentCode: "AB12CD",
	})
	assert.Equal(t, activation.ErrStudentCodeExists, err)
	_, err = repo.CreatePrincipal(ctx, activation.Principal{
		ID: "st3", SchoolID: otherID, Kind: activation.KindStudent, Name: "Chausiku", StudentCode: "AB12CD",
	})
	require.NoError(t, err)

	t.Run("parent student codes", func(t *testing.T) {
		par, err := repo.CreatePrincipal(ctx, activation.Principal{
			ID: "pa1", SchoolID: schoolID, Kind: activation.KindParent, Name: "Mama Amani",
			StudentIDs: []string{st.ID, "st3"},
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"AB12CD"}, par.StudentCodes)
	})

	t.Run("scoped by school", func(t *testing.T) {
		_, err := repo.GetPrincipal(ctx, activation.KindStudent, otherID, st.ID)
		assert.Equal(t, activation.ErrPrincipalNotFound, err)
		_, err = repo.GetPrincipal(ctx, activation.KindParent, schoolID, st.ID)
		assert.Equal(t, activation.ErrPrincipalNotFound, err)
		err = repo.SetInvite(ctx, activation.KindStudent, otherID, st.ID, activation.InviteState{Token: token})
		assert.Equal(t, activation.ErrPrincipalNotFound, err)
	})

	sentAt := time.Date(2026, 1, 10, 8, 0, 0, 0, time.UTC)
	require.NoError(t, repo.SetInvite(ctx, activation.KindStudent, schoolID, st.ID,
		activation.InviteState{Token: token, SentAt: sentAt, CanLogin: true}))

	t.Run("by token", func(t *testing.T) {
		got, err := repo.GetPrincipalByToken(ctx, activation.KindStudent, schoolID, token)
		require.NoError(t, err)
		assert.Equal(t, st.ID, got.ID)
		assert.Equal(t, sentAt, got.InviteSentAt)
		assert.True(t, got.CanLogin)

		_, err = repo.GetPrincipalByToken(ctx, activation.KindStudent, otherID, token)
		assert.Equal(t, activation.ErrTokenNotFound, err)
		_, err = repo.GetPrincipalByToken(ctx, activation.KindStudent, schoolID, "")
		assert.Equal(t, activation.ErrTokenNotFound, err)
	})

	t.Run("link once", func(t *testing.T) {
		link := activation.Link{
			Kind:        activation.KindStudent,
			SchoolID:    otherID,
			PrincipalID: st.ID,
			Token:       token,
			UserID:      "u1",
			ActivatedAt: sentAt.Add(time.Hour),
		}
		ok, err := repo.LinkIdentity(ctx, link)
		require.NoError(t, err)
		assert.False(t, ok, "other school")

		link.SchoolID = schoolID
		ok, err = repo.LinkIdentity(ctx, link)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = repo.LinkIdentity(ctx, link)
		require.NoError(t, err)
		assert.False(t, ok, "token consumed")

		got, err := repo.GetPrincipal(ctx, activation.KindStudent, schoolID, st.ID)
		require.NoError(t, err)
		assert.Equal(t, "u1", got.UserID)
		assert.Empty(t, got.InviteToken)
		assert.True(t, got.Activated())

		_, err = repo.GetPrincipalByToken(ctx, activation.KindStudent, schoolID, token)
		assert.Equal(t, activation.ErrTokenNotFound, err)
	})

	t.Run("reset", func(t *testing.T) {
		db.Reset()
		_, err := repo.GetPrincipal(ctx, activation.KindStudent, schoolID, st.ID)
		assert.Equal(t, activation.ErrPrincipalNotFound, err)
	})
}
