package activation

import (
	"time"

	"github.com/pkg/errors"

	"github.com/classboom/classboom/core"
)

// PrincipalKind names the kind of record that can be invited to a portal.
type PrincipalKind string

const (
	KindStudent PrincipalKind = "student"
	KindParent  PrincipalKind = "parent"
	KindStaff   PrincipalKind = "staff"
)

var Kinds = []PrincipalKind{KindStudent, KindParent, KindStaff}

func ParseKind(s string) (PrincipalKind, error) {
	switch kind := PrincipalKind(core.CleanString(s, true /* lower */)); kind {
	case KindStudent, KindParent, KindStaff:
		return kind, nil
	}
	return "", errors.Wrapf(ErrUnknownKind, "%q", s)
}

// Principal is a student, parent or staff record capable of portal login.
//
// Invariants:
// - AccountCreatedAt set implies UserID set and InviteToken empty.
// - InviteToken set implies InviteSentAt set and AccountCreatedAt zero.
type Principal struct {
	ID               string        `json:"id"`
	SchoolID         string        `json:"school_id"`
	Kind             PrincipalKind `json:"kind"`
	Name             string        `json:"name"`
	Email            string        `json:"email"`
	InviteToken      string        `json:"-"`
	InviteSentAt     time.Time     `json:"invite_sent_at"`     // UTC
	AccountCreatedAt time.Time     `json:"account_created_at"` // UTC
	CanLogin         bool          `json:"can_login"`
	UserID           string        `json:"user_id"`
	CreatedAt        time.Time     `json:"created_at"` // UTC

	// student
	StudentCode string `json:"student_code,omitempty"`

	// parent
	StudentIDs   []string `json:"student_ids,omitempty"`
	StudentCodes []string `json:"-"` // codes of the linked students

	// staff
	StaffRole   StaffRole `json:"staff_role,omitempty"`
	Permissions []string  `json:"permissions,omitempty"`
}

func (p Principal) Activated() bool {
	return !p.AccountCreatedAt.IsZero()
}

func (p Principal) Invited() bool {
	return p.InviteToken != ""
}

func (p Principal) inviteState() InviteState {
	return InviteState{Token: p.InviteToken, SentAt: p.InviteSentAt, CanLogin: p.CanLogin}
}

// NewPrincipal contains information needed to create a new Principal.
type NewPrincipal struct {
	Name        string   `json:"name" validate:"required"`
	Email       string   `json:"email" validate:"omitempty,email"`
	StudentCode string   `json:"student_code" validate:"omitempty,alphanum,max=32"`
	StudentIDs  []string `json:"student_ids" validate:"omitempty,dive,uuid"`
	StaffRole   string   `json:"staff_role"`
}

func (np *NewPrincipal) Clean() {
	np.Name = core.CleanString(np.Name)
	np.Email = core.CleanString(np.Email, true /* lower */)
	np.StudentCode = normalizeStudentCode(np.StudentCode)
	np.StaffRole = core.CleanString(np.StaffRole, true /* lower */)
}

// InviteState holds the fields written by an invitation, so a failed send can restore them.
type InviteState struct {
	Token    string
	SentAt   time.Time
	CanLogin bool
}

// Link is the write that binds an identity to a principal and consumes its token.
// It only applies while the principal of SchoolID still holds Token.
type Link struct {
	Kind        PrincipalKind
	SchoolID    string
	PrincipalID string
	Token       string
	UserID      string
	ActivatedAt time.Time
	Permissions []string // staff only
}

// Credentials are submitted by the principal to activate their account.
type Credentials struct {
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
	StudentCode     string `json:"student_code" validate:"omitempty,max=32"` // parents only
}
