package activation

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classboom/classboom/core"
)

func TestInitValidators(t *testing.T) {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	InitValidators(validate, translator)

	type args struct {
		Kind string `json:"kind" validate:"principalkind"`
		Role string `json:"role" validate:"omitempty,staffrole"`
	}

	tests := []struct {
		name    string
		args    args
		wantErr map[string]string
	}{
		{"student", args{Kind: "student"}, nil},
		{"staff with role", args{Kind: "Staff", Role: "Teacher"}, nil},
		{"unknown kind", args{Kind: "alumni"}, map[string]string{"kind": "kind must be one of student, parent, staff"}},
		{
			"unknown role", args{Kind: "staff", Role: "janitor"},
			map[string]string{"role": "role must be one of admin, teacher, accountant, secretary"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validate.Struct(tt.args)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			var verrs validator.ValidationErrors
			require.ErrorAs(t, err, &verrs)
			got := make(map[string]string, len(verrs))
			for _, fe := range verrs {
				got[fe.Field()] = fe.Translate(translator)
			}
			assert.Equal(t, tt.wantErr, got)
		})
	}
}
