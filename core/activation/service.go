package activation

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/classboom/classboom/core"
	"github.com/classboom/classboom/core/school"
	"github.com/classboom/classboom/core/user"
)

type (
	// Activation is the result of a successful activation.
	Activation struct {
		Principal Principal `json:"principal"`
		User      user.User `json:"user"`
	}

	// Service runs the invitation and activation lifecycle of principals.
	// schoolID is the resolved tenant; principals of other schools are never read nor written.
	Service interface {
		CreatePrincipal(ctx context.Context, schoolID string, kind PrincipalKind, np NewPrincipal) (Principal, error)
		GetPrincipal(ctx context.Context, schoolID string, kind PrincipalKind, id string) (Principal, error)

		// Issue generates a new token for the principal, replacing any previous one, and sends the
		// activation link. If sending fails the previous invitation state is restored.
		Issue(ctx context.Context, schoolID string, kind PrincipalKind, id string) (Invitation, error)

		// Revoke clears the pending invitation and disables login.
		Revoke(ctx context.Context, schoolID string, kind PrincipalKind, id string) error

		// Validate returns the principal holding token. Unknown, consumed and expired tokens fail
		// with an error for which IsNotFoundOrExpired is true.
		Validate(ctx context.Context, schoolID string, kind PrincipalKind, token string) (Principal, error)

		// Activate creates the identity of the principal holding token and links it.
		Activate(ctx context.Context, schoolID string, kind PrincipalKind, token string, creds Credentials) (Activation, error)
	}

	Deps struct {
		Repo     Repository
		Schools  school.Service
		Users    user.Service
		Notifier Notifier
		Validate *validator.Validate
		Logger   core.Logger
		Recorder Recorder // optional
		Conf     *core.Config
	}

	service struct {
		repo     Repository
		kinds    map[PrincipalKind]Kind
		schools  school.Service
		users    user.Service
		notifier Notifier
		validate *validator.Validate
		logger   core.Logger
		recorder Recorder
		baseURL  string
		ttl      time.Duration
	}
)

var _ Service = (*service)(nil)

func NewService(deps Deps) Service {
	vala.BeginValidation().Validate(
		vala.IsNotNil(deps.Repo, "Repo"),
		vala.IsNotNil(deps.Schools, "Schools"),
		vala.IsNotNil(deps.Users, "Users"),
		vala.IsNotNil(deps.Notifier, "Notifier"),
		vala.IsNotNil(deps.Validate, "Validate"),
		vala.IsNotNil(deps.Logger, "Logger"),
		vala.IsNotNil(deps.Conf, "Conf"),
	).CheckAndPanic()

	recorder := deps.Recorder
	if recorder == nil {
		recorder = nopRecorder{}
	}
	ttl := deps.Conf.Activation.TokenTTL
	if ttl <= 0 {
		ttl = 48 * time.Hour
	}
	return &service{
		repo:     deps.Repo,
		kinds:    newKinds(deps.Repo),
		schools:  deps.Schools,
		users:    deps.Users,
		notifier: deps.Notifier,
		validate: deps.Validate,
		logger:   deps.Logger,
		recorder: recorder,
		baseURL:  deps.Conf.FrontendBaseURL,
		ttl:      ttl,
	}
}

func (svc *service) kind(name PrincipalKind) (Kind, error) {
	if k, ok := svc.kinds[name]; ok {
		return k, nil
	}
	return nil, errors.Wrapf(ErrUnknownKind, "%q", string(name))
}

func (svc *service) school(ctx context.Context, schoolID string) (school.School, error) {
	sch, err := svc.schools.Get(ctx, schoolID)
	if err != nil {
		if errors.Cause(err) == school.ErrNotFound {
			return school.School{}, err
		}
		return school.School{}, errors.Wrap(err, "finding school")
	}
	return sch, nil
}

// CreatePrincipal stores a new principal of kind in the school.
// Students get a generated code when np has none; parents may only be linked to students of the same school.
func (svc *service) CreatePrincipal(ctx context.Context, schoolID string, kind PrincipalKind, np NewPrincipal) (Principal, error) {
	if _, err := svc.kind(kind); err != nil {
		return Principal{}, err
	}
	if _, err := svc.school(ctx, schoolID); err != nil {
		return Principal{}, err
	}
	np.Clean()
	if err := svc.validate.Struct(np); err != nil {
		return Principal{}, err
	}

	p := Principal{
		ID:        uuid.New().String(),
		SchoolID:  schoolID,
		Kind:      kind,
		Name:      np.Name,
		Email:     np.Email,
		CreatedAt: nowFunc().UTC(),
	}

	switch kind {
	case KindStudent:
		p.StudentCode = np.StudentCode
		if p.StudentCode == "" {
			code, err := newStudentCode()
			if err != nil {
				return Principal{}, errors.Wrap(err, "generating student code")
			}
			p.StudentCode = code
		}
	case KindParent:
		for _, sid := range np.StudentIDs {
			st, err := svc.repo.GetPrincipal(ctx, KindStudent, schoolID, sid)
			if err != nil {
				if errors.Cause(err) == ErrPrincipalNotFound {
					return Principal{}, core.NewValidationError(err, core.FieldError{Field: "student_ids", Error: "unknown student " + sid})
				}
				return Principal{}, errors.Wrap(err, "finding student")
			}
			p.StudentIDs = append(p.StudentIDs, st.ID)
			p.StudentCodes = append(p.StudentCodes, st.StudentCode)
		}
	case KindStaff:
		role, err := ParseStaffRole(np.StaffRole)
		if err != nil {
			return Principal{}, core.NewValidationError(err, core.FieldError{Field: "staff_role", Error: ErrUnknownStaffRole.Error()})
		}
		p.StaffRole = role
	}

	p, err := svc.repo.CreatePrincipal(ctx, p)
	if err != nil {
		if errors.Cause(err) == ErrStudentCodeExists {
			return Principal{}, core.NewValidationError(err, core.FieldError{Field: "student_code", Error: ErrStudentCodeExists.Error()})
		}
		return Principal{}, errors.Wrap(err, "inserting principal")
	}
	return p, nil
}

func (svc *service) GetPrincipal(ctx context.Context, schoolID string, kind PrincipalKind, id string) (Principal, error) {
	if _, err := svc.kind(kind); err != nil {
		return Principal{}, err
	}
	if _, err := uuid.Parse(id); err != nil {
		return Principal{}, ErrPrincipalNotFound
	}
	return svc.repo.GetPrincipal(ctx, kind, schoolID, id)
}

func (svc *service) Issue(ctx context.Context, schoolID string, kind PrincipalKind, id string) (inv Invitation, err error) {
	defer func() { svc.recorder.ObserveInvitation(kind, err) }()

	sch, err := svc.school(ctx, schoolID)
	if err != nil {
		return Invitation{}, err
	}
	p, err := svc.GetPrincipal(ctx, schoolID, kind, id)
	if err != nil {
		return Invitation{}, err
	}
	if p.Email == "" {
		return Invitation{}, core.NewValidationError(ErrNoEmail, core.FieldError{Field: "email", Error: ErrNoEmail.Error()})
	}
	if p.Activated() {
		return Invitation{}, errors.WithStack(ErrAlreadyActivated)
	}

	token, err := NewToken()
	if err != nil {
		return Invitation{}, errors.Wrap(err, "generating token")
	}
	now := nowFunc().UTC()
	prev := p.inviteState()
	if err = svc.repo.SetInvite(ctx, kind, schoolID, p.ID, InviteState{Token: token, SentAt: now, CanLogin: true}); err != nil {
		return Invitation{}, errors.Wrap(err, "storing invitation")
	}

	inv = Invitation{
		PrincipalID: p.ID,
		Kind:        kind,
		Name:        p.Name,
		Email:       p.Email,
		SchoolName:  sch.Name,
		Token:       token,
		URL:         ActivationURL(svc.baseURL, kind, token),
		SentAt:      now,
		ExpiresAt:   now.Add(svc.ttl),
	}
	if err = svc.notifier.SendInvitation(ctx, inv); err != nil {
		if rErr := svc.repo.SetInvite(context.WithoutCancel(ctx), kind, schoolID, p.ID, prev); rErr != nil {
			svc.logger.Error("restoring invitation state", errors.Wrapf(rErr, "%s %s", kind, p.ID))
		}
		return Invitation{}, fail(ErrInvitationFailed, err)
	}
	return inv, nil
}

func (svc *service) Revoke(ctx context.Context, schoolID string, kind PrincipalKind, id string) error {
	p, err := svc.GetPrincipal(ctx, schoolID, kind, id)
	if err != nil {
		return err
	}
	if p.Activated() {
		return errors.WithStack(ErrAlreadyActivated)
	}
	return errors.Wrap(svc.repo.SetInvite(ctx, kind, schoolID, p.ID, InviteState{}), "clearing invitation")
}

func (svc *service) Validate(ctx context.Context, schoolID string, kind PrincipalKind, token string) (Principal, error) {
	k, err := svc.kind(kind)
	if err != nil {
		return Principal{}, err
	}
	return svc.lookup(ctx, k, schoolID, token)
}

// lookup finds the principal holding token and checks expiry. Expired tokens stay in storage.
func (svc *service) lookup(ctx context.Context, k Kind, schoolID, token string) (Principal, error) {
	if !core.IsHex64(token) {
		return Principal{}, errors.WithStack(ErrTokenNotFound)
	}
	p, err := k.LookupByToken(ctx, schoolID, token)
	if err != nil {
		if errors.Cause(err) == ErrTokenNotFound {
			return Principal{}, err
		}
		return Principal{}, errors.Wrap(err, "finding principal by token")
	}
	if p.SchoolID != schoolID || p.Activated() {
		return Principal{}, errors.WithStack(ErrTokenNotFound)
	}
	if tokenExpired(p.InviteSentAt, nowFunc(), svc.ttl) {
		return Principal{}, errors.WithStack(ErrTokenExpired)
	}
	return p, nil
}

func (svc *service) Activate(ctx context.Context, schoolID string, kind PrincipalKind, token string, creds Credentials) (act Activation, err error) {
	defer func() { svc.recorder.ObserveActivation(kind, err) }()

	k, err := svc.kind(kind)
	if err != nil {
		return Activation{}, err
	}
	if err = svc.validate.Struct(creds); err != nil {
		return Activation{}, err
	}
	p, err := svc.lookup(ctx, k, schoolID, token)
	if err != nil {
		return Activation{}, err
	}
	if err = k.Verify(p, creds); err != nil {
		return Activation{}, err
	}
	// the identity uses the email on file now, not the one the invitation was sent to
	if p.Email == "" {
		return Activation{}, core.NewValidationError(ErrNoEmail, core.FieldError{Field: "email", Error: ErrNoEmail.Error()})
	}
	if err = user.CheckPasswordPolicy(creds.Password, p.Name, p.Email); err != nil {
		return Activation{}, err
	}

	usr, err := svc.users.CreateIdentity(ctx, user.NewIdentity{
		SchoolID:        schoolID,
		Name:            p.Name,
		Email:           p.Email,
		Password:        creds.Password,
		PasswordConfirm: creds.PasswordConfirm,
		Roles:           k.IdentityRoles(p),
	})
	if err != nil {
		if _, ok := errors.Cause(err).(validator.ValidationErrors); ok || core.IsValidationError(err) {
			return Activation{}, err
		}
		return Activation{}, fail(ErrIdentityCreationFailed, err)
	}

	link := Link{
		Kind:        kind,
		SchoolID:    schoolID,
		PrincipalID: p.ID,
		Token:       token,
		UserID:      usr.ID,
		ActivatedAt: nowFunc().UTC(),
	}
	linked, err := k.MarkActivated(ctx, p, link)
	if err != nil || !linked {
		if err == nil {
			err = errors.WithStack(ErrTokenNotFound) // consumed or superseded meanwhile
		}
		svc.deleteIdentity(ctx, usr, p)
		return Activation{}, fail(ErrLinkingFailed, err)
	}

	p.UserID = usr.ID
	p.AccountCreatedAt = link.ActivatedAt
	p.InviteToken = ""
	if kind == KindStaff {
		p.Permissions, _ = p.StaffRole.Permissions()
	}

	svc.welcome(ctx, k, p)
	return Activation{Principal: p, User: usr}, nil
}

// deleteIdentity compensates a failed link. If the delete fails too the identity is orphaned and logged.
func (svc *service) deleteIdentity(ctx context.Context, usr user.User, p Principal) {
	if err := svc.users.DeleteIdentity(context.WithoutCancel(ctx), usr.ID); err != nil {
		svc.logger.Error(
			"orphaned identity",
			errors.Wrapf(err, "deleting user %s after failed link of %s %s", usr.ID, p.Kind, p.ID),
			map[string]interface{}{"school_id": p.SchoolID, "principal_id": p.ID, "user_id": usr.ID},
		)
	}
}

// welcome sends the welcome notification once. Failures are logged only: the account is active.
func (svc *service) welcome(ctx context.Context, k Kind, p Principal) {
	var schoolName string
	if sch, err := svc.school(ctx, p.SchoolID); err == nil {
		schoolName = sch.Name
	}
	err := svc.notifier.SendWelcome(ctx, Welcome{
		Kind:       k.Name(),
		Name:       p.Name,
		Email:      p.Email,
		SchoolName: schoolName,
		Template:   k.WelcomeTemplate(),
	})
	if err != nil {
		svc.logger.Warn("sending welcome notification", errors.Wrapf(err, "%s %s", p.Kind, p.ID))
	}
}
