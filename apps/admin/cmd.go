package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"syscall"

	"github.com/go-playground/validator/v10"
	"golang.org/x/term"

	"github.com/classboom/classboom/core/activation"
	"github.com/classboom/classboom/core/school"
	"github.com/classboom/classboom/core/user"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	db         *sql.DB
	schools    school.Service
	users      user.Service
	activation activation.Service
	validate   *validator.Validate
	out        io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS]                        - run a goose command (up, down, status...)")
	fmt.Fprintln(cli.out, "  addschool -name NAME -slug SLUG               - create a school")
	fmt.Fprintln(cli.out, "  adduser -school SCHOOL -name NAME -email EMAIL [-admin] - add or update a user")
	fmt.Fprintln(cli.out, "  resetpassword -email EMAIL                    - reset user's password")
	fmt.Fprintln(cli.out, "  invite -school SCHOOL -kind KIND -id ID       - send an activation link to a principal")
}

func (cli *commandLine) readPassword(fs *flag.FlagSet) (string, error) {
	fmt.Fprint(cli.out, "Enter password:")
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	fmt.Fprintln(cli.out)
	if err != nil {
		return "", err
	}
	if len(pwd) == 0 {
		fs.Usage()
		return "", errHelp
	}
	return string(pwd), nil
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	addSchoolCmd := flag.NewFlagSet("addschool", flag.ContinueOnError)
	addSchoolName := addSchoolCmd.String("name", "", "The school's name.")
	addSchoolSlug := addSchoolCmd.String("slug", "", "The school's slug, used to resolve it in public routes.")

	addUserCmd := flag.NewFlagSet("adduser", flag.ContinueOnError)
	addUserSchool := addUserCmd.String("school", "", "The school's ID or slug.")
	addUserName := addUserCmd.String("name", "", "The user's name.")
	addUserEmail := addUserCmd.String("email", "", "The user's email. The password will be prompted next.")
	addUserAdmin := addUserCmd.Bool("admin", false, "Make the user a school admin.")

	resetPasswordCmd := flag.NewFlagSet("resetpassword", flag.ContinueOnError)
	resetPasswordEmail := resetPasswordCmd.String("email", "", "The user's email. The password will be prompted next.")

	inviteCmd := flag.NewFlagSet("invite", flag.ContinueOnError)
	inviteSchool := inviteCmd.String("school", "", "The school's ID or slug.")
	inviteKind := inviteCmd.String("kind", "", "The principal kind: student, parent or staff.")
	inviteID := inviteCmd.String("id", "", "The principal's ID.")

	for _, fs := range []*flag.FlagSet{addSchoolCmd, addUserCmd, resetPasswordCmd, inviteCmd} {
		fs.SetOutput(cli.out)
	}

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])

	case "addschool":
		if err := addSchoolCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addSchoolName == "" || *addSchoolSlug == "" {
			addSchoolCmd.Usage()
			return errHelp
		}
		return cli.addSchool(*addSchoolName, *addSchoolSlug)

	case "adduser":
		if err := addUserCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addUserSchool == "" || *addUserEmail == "" {
			addUserCmd.Usage()
			return errHelp
		}
		pwd, err := cli.readPassword(addUserCmd)
		if err != nil {
			return err
		}
		return cli.addUser(*addUserSchool, *addUserName, *addUserEmail, pwd, *addUserAdmin)

	case "resetpassword":
		if err := resetPasswordCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *resetPasswordEmail == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		pwd, err := cli.readPassword(resetPasswordCmd)
		if err != nil {
			return err
		}
		return cli.resetPassword(*resetPasswordEmail, pwd)

	case "invite":
		if err := inviteCmd.Parse(args[2:]); err != nil {
			return err
		}
		return cli.invite(inviteArgs{School: *inviteSchool, Kind: *inviteKind, ID: *inviteID})

	default:
		cli.printUsage()
		return errHelp
	}
}
