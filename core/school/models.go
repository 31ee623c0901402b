package school

import (
	"regexp"
	"time"

	"github.com/classboom/classboom/core"
)

var slugRegex = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// School is a tenant: every principal and identity row belongs to exactly one School.
type School struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	CreatedAt time.Time `json:"created_at"` // UTC
}

// NewSchool contains information needed to create a new School.
type NewSchool struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
}

func (ns *NewSchool) Clean() error {
	ns.Name = core.CleanString(ns.Name)
	ns.Slug = core.CleanString(ns.Slug, true /* lower */)

	var flds []core.FieldError
	if ns.Name == "" {
		flds = append(flds, core.FieldError{Field: "name", Error: "this field is required"})
	}
	if !slugRegex.MatchString(ns.Slug) {
		flds = append(flds, core.FieldError{Field: "slug", Error: "only lowercase letters, digits and dashes are allowed"})
	}
	if flds != nil {
		return core.NewValidationError(nil, flds...)
	}
	return nil
}
