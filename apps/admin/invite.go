package main

import (
	"context"
	"fmt"

	"github.com/classboom/classboom/core/activation"
)

type inviteArgs struct {
	School string `json:"school" validate:"required"`
	Kind   string `json:"kind" validate:"required,principalkind"`
	ID     string `json:"id" validate:"required,uuid"`
}

// invite issues a new activation link, superseding any pending one.
func (cli *commandLine) invite(args inviteArgs) error {
	if err := cli.validate.Struct(args); err != nil {
		return err
	}
	ctx := context.Background()
	sch, err := cli.schools.Resolve(ctx, args.School)
	if err != nil {
		return err
	}
	kind, err := activation.ParseKind(args.Kind)
	if err != nil {
		return err
	}

	inv, err := cli.activation.Issue(ctx, sch.ID, kind, args.ID)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "invitation sent to %s, expires %s\n%s\n", inv.Email, inv.ExpiresAt.Format("2006-01-02 15:04 MST"), inv.URL)
	return nil
}
