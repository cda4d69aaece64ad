package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/schoolms/core/grade"
	"github.com/trezcool/schoolms/core/stage"
	"github.com/trezcool/schoolms/core/student"
)

// Stages

type stageRepository struct {
	db *DB
}

var _ stage.Repository = (*stageRepository)(nil) // interface compliance check

func NewStageRepository(db *DB) *stageRepository {
	return &stageRepository{db: db}
}

func (repo *stageRepository) CreateStage(_ context.Context, stg stage.Stage) (stage.Stage, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	stg.ID = repo.db.nextPK("stage")
	repo.db.stages[stg.ID] = stg
	return stg, nil
}

func (repo *stageRepository) QueryStages(_ context.Context) ([]stage.Stage, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	stages := make([]stage.Stage, 0, len(repo.db.stages))
	for _, stg := range repo.db.stages {
		stages = append(stages, stg)
	}
	sort.Slice(stages, func(i, j int) bool { return stages[i].ID < stages[j].ID })
	return stages, nil
}

func (repo *stageRepository) GetStage(_ context.Context, id int) (stage.Stage, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if stg, ok := repo.db.stages[id]; ok {
		return stg, nil
	}
	return stage.Stage{}, stage.ErrNotFound
}

func (repo *stageRepository) UpdateStage(_ context.Context, stg stage.Stage) (stage.Stage, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.stages[stg.ID]; !ok {
		return stage.Stage{}, stage.ErrNotFound
	}
	repo.db.stages[stg.ID] = stg
	return stg, nil
}

func (repo *stageRepository) DeleteStage(_ context.Context, id int) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.stages[id]; !ok {
		return stage.ErrNotFound
	}
	repo.db.deleteStage(id)
	return nil
}

// Grades

type gradeRepository struct {
	db *DB
}

var _ grade.Repository = (*gradeRepository)(nil) // interface compliance check

func NewGradeRepository(db *DB) *gradeRepository {
	return &gradeRepository{db: db}
}

func (repo *gradeRepository) CreateGrade(_ context.Context, grd grade.Grade) (grade.Grade, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	grd.ID = repo.db.nextPK("grade")
	grd.Stage = nil
	repo.db.grades[grd.ID] = grd
	return grd, nil
}

func (repo *gradeRepository) QueryGrades(_ context.Context) ([]grade.Grade, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	grades := make([]grade.Grade, 0, len(repo.db.grades))
	for _, grd := range repo.db.grades {
		grades = append(grades, grd)
	}
	sort.Slice(grades, func(i, j int) bool { return grades[i].ID < grades[j].ID })
	return grades, nil
}

func (repo *gradeRepository) GetGrade(_ context.Context, id int) (grade.Grade, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if grd, ok := repo.db.grades[id]; ok {
		return grd, nil
	}
	return grade.Grade{}, grade.ErrNotFound
}

func (repo *gradeRepository) UpdateGrade(_ context.Context, grd grade.Grade) (grade.Grade, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.grades[grd.ID]; !ok {
		return grade.Grade{}, grade.ErrNotFound
	}
	grd.Stage = nil
	repo.db.grades[grd.ID] = grd
	return grd, nil
}

func (repo *gradeRepository) DeleteGrade(_ context.Context, id int) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	grd, ok := repo.db.grades[id]
	if !ok {
		return grade.ErrNotFound
	}
	repo.db.deleteGrade(id)

	for _, other := range repo.db.grades {
		if other.StageID == grd.StageID {
			return nil
		}
	}
	repo.db.deleteStage(grd.StageID)
	return nil
}

// Students

type studentRepository struct {
	db *DB
}

var _ student.Repository = (*studentRepository)(nil) // interface compliance check

func NewStudentRepository(db *DB) *studentRepository {
	return &studentRepository{db: db}
}

func (repo *studentRepository) CreateStudent(_ context.Context, std student.Student) (student.Student, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	std.ID = repo.db.nextPK("student")
	std.Grade = nil
	repo.db.students[std.ID] = std
	return std, nil
}

func (repo *studentRepository) QueryStudents(_ context.Context) ([]student.Student, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	students := make([]student.Student, 0, len(repo.db.students))
	for _, std := range repo.db.students {
		students = append(students, std)
	}
	sort.Slice(students, func(i, j int) bool { return students[i].ID < students[j].ID })
	return students, nil
}

func (repo *studentRepository) GetStudent(_ context.Context, id int) (student.Student, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if std, ok := repo.db.students[id]; ok {
		return std, nil
	}
	return student.Student{}, student.ErrNotFound
}

func (repo *studentRepository) UpdateStudent(_ context.Context, std student.Student) (student.Student, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.students[std.ID]; !ok {
		return student.Student{}, student.ErrNotFound
	}
	std.Grade = nil
	repo.db.students[std.ID] = std
	return std, nil
}

func (repo *studentRepository) DeleteStudent(_ context.Context, id int) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.students[id]; !ok {
		return student.ErrNotFound
	}
	repo.db.deleteStudent(id)
	return nil
}
