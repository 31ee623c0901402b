package sqlxrepos

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/classboom/classboom/core"
	"github.com/classboom/classboom/core/school"
)

type (
	schoolRepository struct {
		exec core.DBExecutor
	}

	schoolRow struct {
		ID        string    `db:"id"`
		Name      string    `db:"name"`
		Slug      string    `db:"slug"`
		CreatedAt time.Time `db:"created_at"`
	}
)

var _ school.Repository = (*schoolRepository)(nil)

func NewSchoolRepository(exec core.DBExecutor) school.Repository {
	return &schoolRepository{exec: exec}
}

func (r schoolRow) school() school.School {
	return school.School{ID: r.ID, Name: r.Name, Slug: r.Slug, CreatedAt: r.CreatedAt.UTC()}
}

func (repo *schoolRepository) CreateSchool(ctx context.Context, sch school.School) (school.School, error) {
	const q = `INSERT INTO schools (id, name, slug, created_at) VALUES ($1, $2, $3, $4)`
	if _, err := repo.exec.ExecContext(ctx, q, sch.ID, sch.Name, sch.Slug, sch.CreatedAt.UTC()); err != nil {
		if uniqueConstraint(err) != "" {
			return school.School{}, school.ErrSlugExists
		}
		return school.School{}, errors.Wrap(err, "inserting school")
	}
	return sch, nil
}

func (repo *schoolRepository) GetSchoolByID(ctx context.Context, id string) (school.School, error) {
	var row schoolRow
	err := repo.exec.GetContext(ctx, &row, `SELECT id, name, slug, created_at FROM schools WHERE id = $1`, id)
	if err != nil {
		return school.School{}, trapNoRowsErr(err, school.ErrNotFound, "finding school by ID")
	}
	return row.school(), nil
}

func (repo *schoolRepository) GetSchoolBySlug(ctx context.Context, slug string) (school.School, error) {
	var row schoolRow
	err := repo.exec.GetContext(ctx, &row, `SELECT id, name, slug, created_at FROM schools WHERE slug = $1`, slug)
	if err != nil {
		return school.School{}, trapNoRowsErr(err, school.ErrNotFound, "finding school by slug")
	}
	return row.school(), nil
}
