package main

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/classboom/classboom/core"
	"github.com/classboom/classboom/core/activation"
	"github.com/classboom/classboom/core/school"
	"github.com/classboom/classboom/core/user"
	emailsvc "github.com/classboom/classboom/services/email"
	logsvc "github.com/classboom/classboom/services/logger"
	"github.com/classboom/classboom/storage/database"
	sqlxrepos "github.com/classboom/classboom/storage/database/sqlx"
)

var logger core.Logger

func main() {
	conf, err := core.NewConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "loading config: %v\n", err)
		os.Exit(1)
	}

	std, err := logsvc.NewZapLogger("ADMIN", conf)
	if err != nil {
		fmt.Fprintf(os.Stderr, "setting up logger: %v\n", err)
		os.Exit(1)
	}
	rl := logsvc.NewRollbarLogger(std, conf)
	defer rl.Sync()
	logger = rl

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	activation.InitValidators(validate, translator)

	// set up DB
	errAndDie(database.CreateIfNotExist(conf))
	db, err := database.Open(conf)
	errAndDie(err)
	defer db.Close()

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf)
	}
	schools := school.NewService(sqlxrepos.NewSchoolRepository(db))
	users := user.NewService(sqlxrepos.NewUserRepository(db), validate)

	// start CLI
	cli := commandLine{
		db:      db.DB,
		schools: schools,
		users:   users,
		activation: activation.NewService(activation.Deps{
			Repo:     sqlxrepos.NewPrincipalRepository(db),
			Schools:  schools,
			Users:    users,
			Notifier: activation.NewMailNotifier(mailSvc, conf),
			Validate: validate,
			Logger:   logger,
			Conf:     conf,
		}),
		validate: validate,
		out:      os.Stdout,
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Error(fmt.Sprintf("error: %v", err), errors.WithStack(err))
		}
		rl.Sync()
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err.Error(), err)
	}
}
