package sqlxrepos

import (
	"context"
	"time"

	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/classboom/classboom/core"
	"github.com/classboom/classboom/core/activation"
)

const (
	studentColumns = `id, school_id, name, email, student_code, invite_token, invite_sent_at, account_created_at, can_login, user_id, created_at`
	staffColumns   = `id, school_id, name, email, role, permissions, invite_token, invite_sent_at, account_created_at, can_login, user_id, created_at`
	parentColumns  = `p.id, p.school_id, p.name, p.email, p.invite_token, p.invite_sent_at, p.account_created_at, p.can_login, p.user_id, p.created_at,
		ARRAY(SELECT ps.student_id::text FROM parent_students ps WHERE ps.parent_id = p.id) AS student_ids,
		ARRAY(
			SELECT s.student_code FROM parent_students ps
			JOIN students s ON s.id = ps.student_id AND s.school_id = p.school_id
			WHERE ps.parent_id = p.id
		) AS student_codes`
)

var tables = map[activation.PrincipalKind]string{
	activation.KindStudent: "students",
	activation.KindParent:  "parents",
	activation.KindStaff:   "staff",
}

type (
	principalRepository struct {
		db core.DB
	}

	principalRow struct {
		ID               string         `db:"id"`
		SchoolID         string         `db:"school_id"`
		Name             string         `db:"name"`
		Email            null.String    `db:"email"`
		InviteToken      null.String    `db:"invite_token"`
		InviteSentAt     null.Time      `db:"invite_sent_at"`
		AccountCreatedAt null.Time      `db:"account_created_at"`
		CanLogin         bool           `db:"can_login"`
		UserID           null.String    `db:"user_id"`
		CreatedAt        time.Time      `db:"created_at"`
		StudentCode      string         `db:"student_code"`
		StudentIDs       pq.StringArray `db:"student_ids"`
		StudentCodes     pq.StringArray `db:"student_codes"`
		Role             string         `db:"role"`
		Permissions      pq.StringArray `db:"permissions"`
	}
)

var _ activation.Repository = (*principalRepository)(nil)

// NewPrincipalRepository needs a core.DB: parents and their students are inserted in one transaction.
func NewPrincipalRepository(db core.DB) activation.Repository {
	return &principalRepository{db: db}
}

func nullTime(t time.Time) null.Time {
	return null.NewTime(t.UTC(), !t.IsZero())
}

func utc(t null.Time) time.Time {
	if !t.Valid {
		return time.Time{}
	}
	return t.Time.UTC()
}

func (r principalRow) principal(kind activation.PrincipalKind) activation.Principal {
	return activation.Principal{
		ID:               r.ID,
		SchoolID:         r.SchoolID,
		Kind:             kind,
		Name:             r.Name,
		Email:            r.Email.String,
		InviteToken:      r.InviteToken.String,
		InviteSentAt:     utc(r.InviteSentAt),
		AccountCreatedAt: utc(r.AccountCreatedAt),
		CanLogin:         r.CanLogin,
		UserID:           r.UserID.String,
		CreatedAt:        r.CreatedAt.UTC(),
		StudentCode:      r.StudentCode,
		StudentIDs:       r.StudentIDs,
		StudentCodes:     r.StudentCodes,
		StaffRole:        activation.StaffRole(r.Role),
		Permissions:      r.Permissions,
	}
}

func (repo *principalRepository) CreatePrincipal(ctx context.Context, p activation.Principal) (activation.Principal, error) {
	email := null.NewString(p.Email, p.Email != "")
	err := core.InTx(ctx, repo.db, func(tx core.DBExecutor) error {
		var err error
		switch p.Kind {
		case activation.KindStudent:
			_, err = tx.ExecContext(ctx,
				`INSERT INTO students (id, school_id, name, email, student_code, created_at) VALUES ($1, $2, $3, $4, $5, $6)`,
				p.ID, p.SchoolID, p.Name, email, p.StudentCode, p.CreatedAt.UTC())
		case activation.KindStaff:
			perms := p.Permissions
			if perms == nil {
				perms = []string{}
			}
			_, err = tx.ExecContext(ctx,
				`INSERT INTO staff (id, school_id, name, email, role, permissions, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
				p.ID, p.SchoolID, p.Name, email, string(p.StaffRole), pq.Array(perms), p.CreatedAt.UTC())
		case activation.KindParent:
			_, err = tx.ExecContext(ctx,
				`INSERT INTO parents (id, school_id, name, email, created_at) VALUES ($1, $2, $3, $4, $5)`,
				p.ID, p.SchoolID, p.Name, email, p.CreatedAt.UTC())
			for _, sid := range p.StudentIDs {
				if err != nil {
					break
				}
				_, err = tx.ExecContext(ctx,
					`INSERT INTO parent_students (parent_id, student_id) VALUES ($1, $2)`, p.ID, sid)
			}
		default:
			return activation.ErrUnknownKind
		}
		return err
	})
	if err != nil {
		if c := uniqueConstraint(err); c != "" && p.Kind == activation.KindStudent {
			return activation.Principal{}, activation.ErrStudentCodeExists
		}
		return activation.Principal{}, errors.Wrapf(err, "inserting %s", p.Kind)
	}
	return repo.GetPrincipal(ctx, p.Kind, p.SchoolID, p.ID)
}

func (repo *principalRepository) GetPrincipal(ctx context.Context, kind activation.PrincipalKind, schoolID, id string) (activation.Principal, error) {
	var q string
	switch kind {
	case activation.KindStudent:
		q = `SELECT ` + studentColumns + ` FROM students WHERE school_id = $1 AND id = $2`
	case activation.KindStaff:
		q = `SELECT ` + staffColumns + ` FROM staff WHERE school_id = $1 AND id = $2`
	case activation.KindParent:
		q = `SELECT ` + parentColumns + ` FROM parents p WHERE p.school_id = $1 AND p.id = $2`
	default:
		return activation.Principal{}, activation.ErrUnknownKind
	}

	var row principalRow
	if err := repo.db.GetContext(ctx, &row, q, schoolID, id); err != nil {
		return activation.Principal{}, trapNoRowsErr(err, activation.ErrPrincipalNotFound, "finding "+string(kind))
	}
	return row.principal(kind), nil
}

// GetPrincipalByToken goes through the validate_*_activation_token functions where they exist.
func (repo *principalRepository) GetPrincipalByToken(ctx context.Context, kind activation.PrincipalKind, schoolID, token string) (activation.Principal, error) {
	var q string
	switch kind {
	case activation.KindStudent:
		q = `SELECT ` + studentColumns + ` FROM validate_student_activation_token($1, $2)`
	case activation.KindStaff:
		q = `SELECT ` + staffColumns + ` FROM validate_staff_activation_token($1, $2)`
	case activation.KindParent:
		q = `SELECT ` + parentColumns + ` FROM parents p
			WHERE p.school_id = $1 AND p.invite_token = $2 AND p.account_created_at IS NULL`
	default:
		return activation.Principal{}, activation.ErrUnknownKind
	}

	var row principalRow
	if err := repo.db.GetContext(ctx, &row, q, schoolID, token); err != nil {
		return activation.Principal{}, trapNoRowsErr(err, activation.ErrTokenNotFound, "finding "+string(kind)+" by token")
	}
	return row.principal(kind), nil
}

func (repo *principalRepository) SetInvite(ctx context.Context, kind activation.PrincipalKind, schoolID, id string, state activation.InviteState) error {
	table, ok := tables[kind]
	if !ok {
		return activation.ErrUnknownKind
	}
	q := `UPDATE ` + table + ` SET invite_token = $1, invite_sent_at = $2, can_login = $3 WHERE school_id = $4 AND id = $5`
	res, err := repo.db.ExecContext(ctx, q,
		null.NewString(state.Token, state.Token != ""), nullTime(state.SentAt), state.CanLogin, schoolID, id)
	if err != nil {
		return errors.Wrapf(err, "updating %s invitation", kind)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return activation.ErrPrincipalNotFound
	}
	return nil
}

// LinkIdentity calls activate_student_account / activate_staff_account; parents are linked with a
// guarded UPDATE. Each is a single statement.
func (repo *principalRepository) LinkIdentity(ctx context.Context, link activation.Link) (bool, error) {
	var linked bool
	var err error
	switch link.Kind {
	case activation.KindStudent:
		err = repo.db.GetContext(ctx, &linked,
			`SELECT activate_student_account($1, $2, $3, $4, $5)`,
			link.SchoolID, link.Token, link.UserID, link.PrincipalID, link.ActivatedAt.UTC())
	case activation.KindStaff:
		perms := link.Permissions
		if perms == nil {
			perms = []string{}
		}
		err = repo.db.GetContext(ctx, &linked,
			`SELECT activate_staff_account($1, $2, $3, $4, $5, $6)`,
			link.SchoolID, link.Token, link.PrincipalID, link.UserID, pq.Array(perms), link.ActivatedAt.UTC())
	case activation.KindParent:
		res, execErr := repo.db.ExecContext(ctx,
			`UPDATE parents SET user_id = $1, account_created_at = $2, invite_token = NULL
			WHERE id = $3 AND school_id = $4 AND invite_token = $5 AND account_created_at IS NULL`,
			link.UserID, link.ActivatedAt.UTC(), link.PrincipalID, link.SchoolID, link.Token)
		if execErr != nil {
			err = execErr
			break
		}
		n, nErr := res.RowsAffected()
		linked, err = n == 1, nErr
	default:
		return false, activation.ErrUnknownKind
	}
	if err != nil {
		return false, errors.Wrapf(err, "linking %s identity", link.Kind)
	}
	return linked, nil
}
