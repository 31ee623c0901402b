package school_test

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classboom/classboom/core"
	"github.com/classboom/classboom/core/school"
	"github.com/classboom/classboom/storage/database/inmem"
)

func TestService(t *testing.T) {
	ctx := context.Background()
	svc := school.NewService(inmemdb.NewSchoolRepository(inmemdb.Open()))

	wima, err := svc.Create(ctx, school.NewSchool{Name: "  Lycée Wima ", Slug: " Wima-2 "})
	require.NoError(t, err)
	assert.Equal(t, "Lycée Wima", wima.Name)
	assert.Equal(t, "wima-2", wima.Slug)

	t.Run("create", func(t *testing.T) {
		tests := []struct {
			name       string
			ns         school.NewSchool
			wantFields []core.FieldError
		}{
			{
				name: "empty",
				wantFields: []core.FieldError{
					{Field: "name", Error: "this field is required"},
					{Field: "slug", Error: "only lowercase letters, digits and dashes are allowed"},
				},
			},
			{
				name:       "bad slug",
				ns:         school.NewSchool{Name: "Boboto", Slug: "bo--boto"},
				wantFields: []core.FieldError{{Field: "slug", Error: "only lowercase letters, digits and dashes are allowed"}},
			},
			{
				name:       "duplicate slug",
				ns:         school.NewSchool{Name: "Wima bis", Slug: "WIMA-2"},
				wantFields: []core.FieldError{{Field: "slug", Error: school.ErrSlugExists.Error()}},
			},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := svc.Create(ctx, tt.ns)
				require.True(t, core.IsValidationError(err), err)
				assert.Equal(t, tt.wantFields, errors.Cause(err).(*core.ValidationError).Fields)
			})
		}
	})

	t.Run("get", func(t *testing.T) {
		got, err := svc.Get(ctx, wima.ID)
		require.NoError(t, err)
		assert.Equal(t, wima, got)

		_, err = svc.Get(ctx, "wima-2")
		assert.Equal(t, school.ErrNotFound, errors.Cause(err))
		_, err = svc.Get(ctx, "c9b5bd64-2fbb-4c47-9f0b-28c8e7e70f36")
		assert.Equal(t, school.ErrNotFound, errors.Cause(err))
	})

	t.Run("resolve", func(t *testing.T) {
		for _, key := range []string{wima.ID, "wima-2", " WIMA-2"} {
			got, err := svc.Resolve(ctx, key)
			require.NoError(t, err, key)
			assert.Equal(t, wima.ID, got.ID)
		}
		for _, key := range []string{"", "  ", "boboto"} {
			_, err := svc.Resolve(ctx, key)
			assert.Equal(t, school.ErrNotFound, errors.Cause(err), key)
		}
	})
}
