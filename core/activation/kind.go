package activation

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"github.com/classboom/classboom/core"
	"github.com/classboom/classboom/core/user"
)

// Kind is the capability set that distinguishes student, parent and staff activation.
// The activation state machine in Service is shared by every Kind.
type Kind interface {
	Name() PrincipalKind

	// LookupByToken returns the not yet activated principal of schoolID holding token.
	LookupByToken(ctx context.Context, schoolID, token string) (Principal, error)

	// Verify runs the extra checks a kind requires before an identity is created.
	Verify(p Principal, creds Credentials) error

	// MarkActivated links the identity and consumes the token.
	// It returns false if the token no longer matches (consumed or superseded).
	MarkActivated(ctx context.Context, p Principal, link Link) (bool, error)

	IdentityRoles(p Principal) []string
	WelcomeTemplate() string
}

func newKinds(repo Repository) map[PrincipalKind]Kind {
	return map[PrincipalKind]Kind{
		KindStudent: studentKind{repo: repo},
		KindParent:  parentKind{repo: repo},
		KindStaff:   staffKind{repo: repo},
	}
}

// student

type studentKind struct {
	repo Repository
}

func (studentKind) Name() PrincipalKind { return KindStudent }

func (k studentKind) LookupByToken(ctx context.Context, schoolID, token string) (Principal, error) {
	return k.repo.GetPrincipalByToken(ctx, KindStudent, schoolID, token)
}

func (studentKind) Verify(Principal, Credentials) error { return nil }

func (k studentKind) MarkActivated(ctx context.Context, _ Principal, link Link) (bool, error) {
	return k.repo.LinkIdentity(ctx, link)
}

func (studentKind) IdentityRoles(Principal) []string { return []string{user.RoleStudent} }
func (studentKind) WelcomeTemplate() string          { return "welcome_student" }

// parent

type parentKind struct {
	repo Repository
}

func (parentKind) Name() PrincipalKind { return KindParent }

func (k parentKind) LookupByToken(ctx context.Context, schoolID, token string) (Principal, error) {
	return k.repo.GetPrincipalByToken(ctx, KindParent, schoolID, token)
}

// Verify requires the code of one of the parent's students.
func (parentKind) Verify(p Principal, creds Credentials) error {
	code := normalizeStudentCode(creds.StudentCode)
	if code == "" {
		return core.NewValidationError(nil, core.FieldError{Field: "student_code", Error: "this field is required"})
	}
	for _, sc := range p.StudentCodes {
		if strings.EqualFold(sc, code) {
			return nil
		}
	}
	return errors.WithStack(ErrStudentCodeMismatch)
}

func (k parentKind) MarkActivated(ctx context.Context, _ Principal, link Link) (bool, error) {
	return k.repo.LinkIdentity(ctx, link)
}

func (parentKind) IdentityRoles(Principal) []string { return []string{user.RoleParent} }
func (parentKind) WelcomeTemplate() string          { return "welcome_parent" }

// staff

type staffKind struct {
	repo Repository
}

func (staffKind) Name() PrincipalKind { return KindStaff }

func (k staffKind) LookupByToken(ctx context.Context, schoolID, token string) (Principal, error) {
	return k.repo.GetPrincipalByToken(ctx, KindStaff, schoolID, token)
}

func (staffKind) Verify(p Principal, _ Credentials) error {
	_, err := p.StaffRole.Permissions()
	return err
}

// MarkActivated stores the default permissions of the staff role along with the link.
func (k staffKind) MarkActivated(ctx context.Context, p Principal, link Link) (bool, error) {
	perms, err := p.StaffRole.Permissions()
	if err != nil {
		return false, err
	}
	link.Permissions = perms
	return k.repo.LinkIdentity(ctx, link)
}

func (staffKind) IdentityRoles(p Principal) []string { return p.StaffRole.UserRoles() }
func (staffKind) WelcomeTemplate() string            { return "welcome_staff" }
