package inmemdb

import (
	"sync"

	"github.com/trezcool/schoolms/core/fee"
	"github.com/trezcool/schoolms/core/grade"
	"github.com/trezcool/schoolms/core/stage"
	"github.com/trezcool/schoolms/core/student"
	"github.com/trezcool/schoolms/core/user"
)

// DB is an in-memory database, used in tests.
// Deletes cascade like the SQL schema: stage > grade > student > fee > installment.
type DB struct {
	mutex   sync.RWMutex
	pkCount map[string]int

	users        map[string]user.User
	stages       map[int]stage.Stage
	grades       map[int]grade.Grade
	students     map[int]student.Student
	fees         map[int]fee.Fee
	installments map[int]fee.Installment
}

func NewDB() *DB {
	db := &DB{}
	db.reset()
	return db
}

// Reset deletes everything.
func (db *DB) Reset() {
	db.mutex.Lock()
	defer db.mutex.Unlock()
	db.reset()
}

func (db *DB) reset() {
	db.pkCount = make(map[string]int)
	db.users = make(map[string]user.User)
	db.stages = make(map[int]stage.Stage)
	db.grades = make(map[int]grade.Grade)
	db.students = make(map[int]student.Student)
	db.fees = make(map[int]fee.Fee)
	db.installments = make(map[int]fee.Installment)
}

func (db *DB) nextPK(table string) int {
	db.pkCount[table]++
	return db.pkCount[table]
}

// the delete* helpers expect the write lock to be held.

func (db *DB) deleteStage(id int) {
	for gid, grd := range db.grades {
		if grd.StageID == id {
			db.deleteGrade(gid)
		}
	}
	delete(db.stages, id)
}

func (db *DB) deleteGrade(id int) {
	for sid, std := range db.students {
		if std.GradeID == id {
			db.deleteStudent(sid)
		}
	}
	delete(db.grades, id)
}

func (db *DB) deleteStudent(id int) {
	for fid, f := range db.fees {
		if f.StudentID == id {
			db.deleteFee(fid)
		}
	}
	delete(db.students, id)
}

func (db *DB) deleteFee(id int) {
	for iid, inst := range db.installments {
		if inst.FeeID == id {
			delete(db.installments, iid)
		}
	}
	delete(db.fees, id)
}
