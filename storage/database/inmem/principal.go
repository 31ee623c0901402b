package inmemdb

import (
	"context"

	"github.com/classboom/classboom/core/activation"
)

type principalRepository struct {
	db *DB
}

var _ activation.Repository = (*principalRepository)(nil)

func NewPrincipalRepository(db *DB) activation.Repository {
	return &principalRepository{db: db}
}

func (repo *principalRepository) table(kind activation.PrincipalKind) (map[string]activation.Principal, error) {
	if t, ok := repo.db.principals[kind]; ok {
		return t, nil
	}
	return nil, activation.ErrUnknownKind
}

// withStudentCodes fills the codes of the students a parent is linked to. Caller holds the lock.
func (repo *principalRepository) withStudentCodes(p activation.Principal) activation.Principal {
	if p.Kind != activation.KindParent {
		return p
	}
	p.StudentCodes = nil
	students := repo.db.principals[activation.KindStudent]
	for _, sid := range p.StudentIDs {
		if st, ok := students[sid]; ok && st.SchoolID == p.SchoolID {
			p.StudentCodes = append(p.StudentCodes, st.StudentCode)
		}
	}
	return p
}

func (repo *principalRepository) CreatePrincipal(_ context.Context, p activation.Principal) (activation.Principal, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	t, err := repo.table(p.Kind)
	if err != nil {
		return activation.Principal{}, err
	}
	if p.Kind == activation.KindStudent {
		for _, st := range t {
			if st.SchoolID == p.SchoolID && st.StudentCode == p.StudentCode {
				return activation.Principal{}, activation.ErrStudentCodeExists
			}
		}
	}
	p.StudentCodes = nil
	t[p.ID] = p
	return repo.withStudentCodes(p), nil
}

func (repo *principalRepository) GetPrincipal(_ context.Context, kind activation.PrincipalKind, schoolID, id string) (activation.Principal, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	t, err := repo.table(kind)
	if err != nil {
		return activation.Principal{}, err
	}
	if p, ok := t[id]; ok && p.SchoolID == schoolID {
		return repo.withStudentCodes(p), nil
	}
	return activation.Principal{}, activation.ErrPrincipalNotFound
}

func (repo *principalRepository) GetPrincipalByToken(_ context.Context, kind activation.PrincipalKind, schoolID, token string) (activation.Principal, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	t, err := repo.table(kind)
	if err != nil {
		return activation.Principal{}, err
	}
	for _, p := range t {
		if p.SchoolID == schoolID && p.InviteToken == token && token != "" && !p.Activated() {
			return repo.withStudentCodes(p), nil
		}
	}
	return activation.Principal{}, activation.ErrTokenNotFound
}

func (repo *principalRepository) SetInvite(_ context.Context, kind activation.PrincipalKind, schoolID, id string, state activation.InviteState) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	t, err := repo.table(kind)
	if err != nil {
		return err
	}
	p, ok := t[id]
	if !ok || p.SchoolID != schoolID {
		return activation.ErrPrincipalNotFound
	}
	p.InviteToken = state.Token
	p.InviteSentAt = state.SentAt
	p.CanLogin = state.CanLogin
	t[id] = p
	return nil
}

func (repo *principalRepository) LinkIdentity(_ context.Context, link activation.Link) (bool, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	t, err := repo.table(link.Kind)
	if err != nil {
		return false, err
	}
	p, ok := t[link.PrincipalID]
	if !ok || p.SchoolID != link.SchoolID || p.InviteToken == "" || p.InviteToken != link.Token || p.Activated() {
		return false, nil
	}
	p.UserID = link.UserID
	p.AccountCreatedAt = link.ActivatedAt
	p.InviteToken = ""
	if link.Kind == activation.KindStaff {
		p.Permissions = link.Permissions
	}
	t[p.ID] = p
	return true, nil
}
