package school

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/classboom/classboom/core"
)

var (
	// errors
	ErrNotFound   = errors.New("school not found")
	ErrSlugExists = errors.New("a school with this slug already exists")
)

type (
	Repository interface {
		CreateSchool(ctx context.Context, sch School) (School, error)
		GetSchoolByID(ctx context.Context, id string) (School, error)
		GetSchoolBySlug(ctx context.Context, slug string) (School, error)
	}

	Service interface {
		Create(ctx context.Context, ns NewSchool) (School, error)
		Get(ctx context.Context, id string) (School, error)
		// Resolve finds a School by ID or slug.
		Resolve(ctx context.Context, idOrSlug string) (School, error)
	}

	service struct {
		repo Repository
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (svc *service) Create(ctx context.Context, ns NewSchool) (School, error) {
	if err := ns.Clean(); err != nil {
		return School{}, err
	}
	if _, err := svc.repo.GetSchoolBySlug(ctx, ns.Slug); err == nil {
		return School{}, core.NewValidationError(ErrSlugExists, core.FieldError{Field: "slug", Error: ErrSlugExists.Error()})
	} else if errors.Cause(err) != ErrNotFound {
		return School{}, errors.Wrap(err, "checking slug uniqueness")
	}

	sch, err := svc.repo.CreateSchool(ctx, School{
		ID:        uuid.New().String(),
		Name:      ns.Name,
		Slug:      ns.Slug,
		CreatedAt: time.Now().UTC(),
	})
	return sch, errors.Wrap(err, "creating school")
}

func (svc *service) Get(ctx context.Context, id string) (School, error) {
	if _, err := uuid.Parse(id); err != nil {
		return School{}, ErrNotFound
	}
	return svc.repo.GetSchoolByID(ctx, id)
}

func (svc *service) Resolve(ctx context.Context, idOrSlug string) (School, error) {
	idOrSlug = core.CleanString(idOrSlug, true /* lower */)
	if idOrSlug == "" {
		return School{}, ErrNotFound
	}
	if _, err := uuid.Parse(idOrSlug); err == nil {
		return svc.repo.GetSchoolByID(ctx, idOrSlug)
	}
	return svc.repo.GetSchoolBySlug(ctx, idOrSlug)
}
