package testutil

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/classboom/classboom/core"
	"github.com/classboom/classboom/core/activation"
	"github.com/classboom/classboom/core/school"
	"github.com/classboom/classboom/core/user"
	"github.com/classboom/classboom/services/email"
	"github.com/classboom/classboom/storage/database/inmem"
)

// Env wires the core services on an in-memory database.
type Env struct {
	Conf       *core.Config
	DB         *inmemdb.DB
	Validate   *validator.Validate
	Translator ut.Translator
	Mail       *emailsvc.ConsoleServiceMock
	Logger     *Logger
	SchoolRepo school.Repository
	UserRepo   user.Repository
	Repo       activation.Repository
	Schools    school.Service
	Users      user.Service
	Activation activation.Service
}

// NewEnv builds an Env. opts may replace activation dependencies, e.g. to inject failures.
func NewEnv(t *testing.T, opts ...func(*activation.Deps)) *Env {
	t.Helper()

	env := &Env{
		Conf:   core.NewTestConfig(),
		DB:     inmemdb.Open(),
		Logger: new(Logger),
	}
	env.Validate, env.Translator = NewValidator()
	env.Mail = emailsvc.NewConsoleServiceMock(env.Conf)
	env.SchoolRepo = inmemdb.NewSchoolRepository(env.DB)
	env.UserRepo = inmemdb.NewUserRepository(env.DB)
	env.Repo = inmemdb.NewPrincipalRepository(env.DB)
	env.Schools = school.NewService(env.SchoolRepo)
	env.Users = user.NewService(env.UserRepo, env.Validate)

	deps := activation.Deps{
		Repo:     env.Repo,
		Schools:  env.Schools,
		Users:    env.Users,
		Notifier: activation.NewMailNotifier(env.Mail, env.Conf),
		Validate: env.Validate,
		Logger:   env.Logger,
		Conf:     env.Conf,
	}
	for _, opt := range opts {
		opt(&deps)
	}
	env.Activation = activation.NewService(deps)
	return env
}

// NewValidator returns a validator with every custom validation registered, and its translator.
func NewValidator() (*validator.Validate, ut.Translator) {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	activation.InitValidators(validate, translator)
	return validate, translator
}

func CreateSchool(t *testing.T, svc school.Service, name, slug string) school.School {
	t.Helper()
	sch, err := svc.Create(context.Background(), school.NewSchool{Name: name, Slug: slug})
	if err != nil {
		t.Fatalf("CreateSchool() failed: %v", err)
	}
	return sch
}

func CreateUser(
	t *testing.T,
	repo user.Repository,
	schoolID, name, email, pwd string,
	roles []string,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	t.Helper()
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		ID:        newID(),
		SchoolID:  schoolID,
		Name:      name,
		Email:     email,
		Roles:     roles,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	usr.SetActive(isActive)
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

func CreatePrincipal(
	t *testing.T,
	svc activation.Service,
	schoolID string,
	kind activation.PrincipalKind,
	np activation.NewPrincipal,
) activation.Principal {
	t.Helper()
	p, err := svc.CreatePrincipal(context.Background(), schoolID, kind, np)
	if err != nil {
		t.Fatalf("CreatePrincipal() failed: %v", err)
	}
	return p
}

var (
	idMu    sync.Mutex
	idCount int
)

func newID() string {
	idMu.Lock()
	defer idMu.Unlock()
	idCount++
	return fmt.Sprintf("00000000-0000-4000-8000-%012d", idCount)
}

// Logger records logged messages.
type Logger struct {
	mu      sync.Mutex
	Entries []LogEntry
}

type LogEntry struct {
	Level string
	Msg   string
	Args  []interface{}
}

var _ core.Logger = (*Logger)(nil)

func (l *Logger) log(level, msg string, args []interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Entries = append(l.Entries, LogEntry{Level: level, Msg: msg, Args: args})
}

func (l *Logger) Debug(msg string, args ...interface{}) { l.log("debug", msg, args) }
func (l *Logger) Info(msg string, args ...interface{})  { l.log("info", msg, args) }
func (l *Logger) Warn(msg string, args ...interface{})  { l.log("warn", msg, args) }
func (l *Logger) Error(msg string, args ...interface{}) { l.log("error", msg, args) }
func (l *Logger) Fatal(msg string, args ...interface{}) { l.log("fatal", msg, args) }

// Messages returns the logged messages of level.
func (l *Logger) Messages(level string) []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	var msgs []string
	for _, e := range l.Entries {
		if e.Level == level {
			msgs = append(msgs, e.Msg)
		}
	}
	return msgs
}
