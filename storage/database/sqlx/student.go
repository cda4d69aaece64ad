package sqlxrepos

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/schoolms/core"
	"github.com/trezcool/schoolms/core/student"
)

const studentColumns = `id, name, parents_name, address, phone_number, date_of_birth, grade_id, created_at, updated_at`

type studentRepository struct {
	db core.DB
}

var _ student.Repository = (*studentRepository)(nil) // interface compliance check

func NewStudentRepository(db core.DB) *studentRepository {
	return &studentRepository{db: db}
}

func (repo studentRepository) CreateStudent(ctx context.Context, std student.Student) (student.Student, error) {
	q := `INSERT INTO student (name, parents_name, address, phone_number, date_of_birth, grade_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`
	err := repo.db.QueryRowxContext(ctx, q,
		std.Name, std.ParentsName, std.Address, std.PhoneNumber, std.DateOfBirth, std.GradeID, std.CreatedAt, std.UpdatedAt,
	).Scan(&std.ID)
	if err != nil {
		return student.Student{}, errors.Wrap(err, "inserting student")
	}
	return std, nil
}

func (repo studentRepository) QueryStudents(ctx context.Context) ([]student.Student, error) {
	students := make([]student.Student, 0)
	if err := repo.db.SelectContext(ctx, &students, `SELECT `+studentColumns+` FROM student ORDER BY id`); err != nil {
		return nil, errors.Wrap(err, "selecting students")
	}
	return students, nil
}

func (repo studentRepository) GetStudent(ctx context.Context, id int) (student.Student, error) {
	var std student.Student
	if err := repo.db.GetContext(ctx, &std, `SELECT `+studentColumns+` FROM student WHERE id = $1`, id); err != nil {
		return student.Student{}, trapNoRowsErr(err, student.ErrNotFound, "selecting student")
	}
	return std, nil
}

func (repo studentRepository) UpdateStudent(ctx context.Context, std student.Student) (student.Student, error) {
	res, err := repo.db.ExecContext(ctx,
		`UPDATE student SET
			name = $1, parents_name = $2, address = $3, phone_number = $4, date_of_birth = $5, grade_id = $6, updated_at = $7
		WHERE id = $8`,
		std.Name, std.ParentsName, std.Address, std.PhoneNumber, std.DateOfBirth, std.GradeID, std.UpdatedAt, std.ID,
	)
	if err != nil {
		return student.Student{}, errors.Wrap(err, "updating student")
	}
	if err = checkAffected(res, student.ErrNotFound, "updating student"); err != nil {
		return student.Student{}, err
	}
	return std, nil
}

func (repo studentRepository) DeleteStudent(ctx context.Context, id int) error {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM student WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting student")
	}
	return checkAffected(res, student.ErrNotFound, "deleting student")
}
