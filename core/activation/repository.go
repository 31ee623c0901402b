package activation

import "context"

// Repository stores principals. Every method is scoped by school id: a principal of another
// school is reported as not found.
type Repository interface {
	CreatePrincipal(ctx context.Context, p Principal) (Principal, error)
	GetPrincipal(ctx context.Context, kind PrincipalKind, schoolID, id string) (Principal, error)

	// GetPrincipalByToken returns ErrTokenNotFound unless a not yet activated principal holds token.
	GetPrincipalByToken(ctx context.Context, kind PrincipalKind, schoolID, token string) (Principal, error)

	// SetInvite overwrites the invitation fields of the principal in a single write.
	SetInvite(ctx context.Context, kind PrincipalKind, schoolID, id string, state InviteState) error

	// LinkIdentity applies link atomically. It returns false when no principal of link.SchoolID
	// holds link.Token anymore.
	LinkIdentity(ctx context.Context, link Link) (bool, error)
}
