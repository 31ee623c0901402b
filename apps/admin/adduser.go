package main

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/classboom/classboom/core"
	"github.com/classboom/classboom/core/school"
	"github.com/classboom/classboom/core/user"
)

func (cli *commandLine) addSchool(name, slug string) error {
	sch, err := cli.schools.Create(context.Background(), school.NewSchool{Name: name, Slug: slug})
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "school %q created: %s\n", sch.Slug, sch.ID)
	return nil
}

// addUser updates or creates a user.User of the school.
func (cli *commandLine) addUser(schoolIDOrSlug, name, email, pwd string, isAdmin bool) error {
	ctx := context.Background()
	sch, err := cli.schools.Resolve(ctx, schoolIDOrSlug)
	if err != nil {
		return err
	}

	var roles []string
	if isAdmin {
		roles = []string{user.RoleAdmin}
	}

	usr, err := cli.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Cause(err) != user.ErrNotFound {
			return err
		}
		usr, err = cli.users.CreateIdentity(ctx, user.NewIdentity{
			SchoolID:        sch.ID,
			Name:            name,
			Email:           email,
			Password:        pwd,
			PasswordConfirm: pwd,
			Roles:           roles,
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(cli.out, "user %s created: %s\n", usr.Email, usr.ID)
		return nil
	}

	if usr.SchoolID != sch.ID {
		return core.NewValidationError(user.ErrUserExists, core.FieldError{Field: "email", Error: user.ErrUserExists.Error()})
	}
	if name = core.CleanString(name); name != "" {
		usr.Name = name
	}
	if isAdmin && !usr.IsAdmin() {
		usr.Roles = append(usr.Roles, user.RoleAdmin)
	}
	usr.SetActive(true)
	if usr, err = cli.users.SetPassword(ctx, usr, pwd); err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "user %s updated: %s\n", usr.Email, usr.ID)
	return nil
}
