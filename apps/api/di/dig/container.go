package dig_container

import (
	"context"
	"fmt"
	"log"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/dig"

	echoapi "github.com/classboom/classboom/apps/api/echo"
	"github.com/classboom/classboom/core"
	"github.com/classboom/classboom/core/activation"
	"github.com/classboom/classboom/core/school"
	"github.com/classboom/classboom/core/user"
	emailsvc "github.com/classboom/classboom/services/email"
	logsvc "github.com/classboom/classboom/services/logger"
	"github.com/classboom/classboom/services/metrics"
	"github.com/classboom/classboom/services/ratelimit"
	"github.com/classboom/classboom/storage/database"
	sqlxrepos "github.com/classboom/classboom/storage/database/sqlx"
)

type (
	DBLoggerParam struct {
		dig.In
		Logger core.Logger `name:"dbLogger"`
	}

	activationParams struct {
		dig.In
		Conf     *core.Config
		Logger   core.Logger
		Validate *validator.Validate
		Repo     activation.Repository
		Schools  school.Service
		Users    user.Service
		Notifier activation.Notifier
		Metrics  *metrics.ActivationMetrics
	}

	serverParams struct {
		dig.In
		Conf       *core.Config
		Logger     core.Logger
		Validate   *validator.Validate
		Translator ut.Translator
		Users      user.Service
		Schools    school.Service
		Activation activation.Service
		Limiter    ratelimit.Limiter
	}
)

func newLogger(conf *core.Config) (core.Logger, error) {
	std, err := logsvc.NewZapLogger("API", conf)
	if err != nil {
		return nil, err
	}
	return logsvc.NewRollbarLogger(std, conf), nil
}

func newDBLogger(conf *core.Config) (core.Logger, error) {
	std, err := logsvc.NewZapLogger("DB", conf)
	if err != nil {
		return nil, err
	}
	return logsvc.NewRollbarLogger(std, conf), nil
}

func newDB(conf *core.Config, loggerParam DBLoggerParam) (*sqlx.DB, core.DB, core.DBExecutor) {
	setUp := func() (*sqlx.DB, error) {
		if err := database.CreateIfNotExist(conf); err != nil {
			return nil, err
		}

		db, err := database.Open(conf)
		if err != nil {
			return nil, err
		}

		if err = database.Migrate(db.DB, "up"); err != nil {
			return nil, err
		}
		return db, nil
	}

	db, err := setUp()
	if err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	return db, db, db
}

func newEmailService(conf *core.Config) core.EmailService {
	if conf.Debug {
		return emailsvc.NewConsoleService(conf)
	}
	return emailsvc.NewSendgridService(conf)
}

func newRegistry() (*prometheus.Registry, prometheus.Registerer) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return reg, reg
}

// newLimiter counts hits in redis when configured, in memory otherwise.
func newLimiter(conf *core.Config, logger core.Logger) (ratelimit.Limiter, error) {
	rl := conf.RateLimit
	if rl.RedisAddr == "" {
		logger.Info("rate limiting in memory")
		return ratelimit.NewMemoryLimiter(rl.Limit, rl.Window), nil
	}

	client := redis.NewClient(&redis.Options{Addr: rl.RedisAddr})
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, errors.Wrapf(err, "connecting to redis at %s", rl.RedisAddr)
	}
	return ratelimit.NewRedisLimiter(client, "classboom:activate", rl.Limit, rl.Window), nil
}

func newActivationService(p activationParams) activation.Service {
	return activation.NewService(activation.Deps{
		Repo:     p.Repo,
		Schools:  p.Schools,
		Users:    p.Users,
		Notifier: p.Notifier,
		Validate: p.Validate,
		Logger:   p.Logger,
		Recorder: p.Metrics,
		Conf:     p.Conf,
	})
}

func newServer(p serverParams) echoapi.Server {
	return echoapi.NewServer(echoapi.ServerDeps{
		Conf:          p.Conf,
		Logger:        p.Logger,
		Validate:      p.Validate,
		Translator:    p.Translator,
		UserSvc:       p.Users,
		SchoolSvc:     p.Schools,
		ActivationSvc: p.Activation,
		Limiter:       p.Limiter,
	})
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newDB))
	must(c.Provide(newEmailService))
	must(c.Provide(newRegistry))
	must(c.Provide(validator.New))
	must(c.Provide(core.NewTranslator))

	must(c.Provide(sqlxrepos.NewSchoolRepository))
	must(c.Provide(sqlxrepos.NewUserRepository))
	must(c.Provide(sqlxrepos.NewPrincipalRepository))

	must(c.Provide(school.NewService))
	must(c.Provide(user.NewService))
	must(c.Provide(activation.NewMailNotifier, dig.As(new(activation.Notifier))))
	must(c.Provide(metrics.NewActivationMetrics))
	must(c.Provide(newActivationService))
	must(c.Provide(newLimiter))
	must(c.Provide(newServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
