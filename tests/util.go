package testutil

import (
	"context"
	"io/ioutil"
	"log"
	"os"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/trezcool/schoolms/core"
	"github.com/trezcool/schoolms/core/fee"
	"github.com/trezcool/schoolms/core/grade"
	"github.com/trezcool/schoolms/core/stage"
	"github.com/trezcool/schoolms/core/student"
	"github.com/trezcool/schoolms/core/user"
	"github.com/trezcool/schoolms/services/logger"
	"github.com/trezcool/schoolms/storage/database"
)

// NewLogger returns a silent core.Logger.
func NewLogger(conf *core.Config) core.Logger {
	return logsvc.NewRollbarLogger(log.New(ioutil.Discard, "", 0), conf)
}

// PrepareDB opens and migrates the test database, then empties it.
// The test is skipped unless TEST_DATABASE_HOST is set.
func PrepareDB(t *testing.T) *sqlx.DB {
	if _, ok := os.LookupEnv("TEST_DATABASE_HOST"); !ok {
		t.Skip("TEST_DATABASE_HOST not set")
	}

	conf := core.NewTestConfig()
	if err := database.CreateIfNotExist(conf); err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	db, err := database.Open(conf)
	if err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err = database.Migrate(db.DB); err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	ResetDB(t, db)
	return db
}

// ResetDB deletes all rows of the app tables.
func ResetDB(t *testing.T, db *sqlx.DB) {
	q := `TRUNCATE TABLE installment, fee, student, grade, educational_stage, "user" RESTART IDENTITY CASCADE`
	if _, err := db.Exec(q); err != nil {
		t.Fatalf("ResetDB() failed: %v", err)
	}
}

func CreateUser(t *testing.T, repo user.Repository, uname, pwd string, isAdmin bool, createdAt ...time.Time) user.User {
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		Username:  uname,
		IsAdmin:   isAdmin,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

func CreateStage(t *testing.T, repo stage.Repository, name string) stage.Stage {
	now := time.Now().UTC()
	stg, err := repo.CreateStage(context.Background(), stage.Stage{Name: name, CreatedAt: now, UpdatedAt: now})
	if err != nil {
		t.Fatalf("CreateStage() failed: %v", err)
	}
	return stg
}

func CreateGrade(t *testing.T, repo grade.Repository, stageID int, name string) grade.Grade {
	now := time.Now().UTC()
	grd, err := repo.CreateGrade(context.Background(), grade.Grade{
		Name:      name,
		StageID:   stageID,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("CreateGrade() failed: %v", err)
	}
	return grd
}

func CreateStudent(t *testing.T, repo student.Repository, gradeID int, name, parentsName, phone string) student.Student {
	now := time.Now().UTC()
	std, err := repo.CreateStudent(context.Background(), student.Student{
		Name:        name,
		ParentsName: parentsName,
		Address:     "12 Avenue du Commerce",
		PhoneNumber: phone,
		DateOfBirth: time.Date(2012, time.March, 4, 0, 0, 0, 0, time.UTC),
		GradeID:     gradeID,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		t.Fatalf("CreateStudent() failed: %v", err)
	}
	return std
}

// CreateFee creates an unscheduled Fee of total, split in n installments.
func CreateFee(t *testing.T, repo fee.Repository, studentID int, total string, n int) fee.Fee {
	amount := decimal.RequireFromString(total)
	now := time.Now().UTC()
	f, err := repo.CreateFee(context.Background(), fee.Fee{
		StudentID:            studentID,
		TotalAmount:          amount,
		NumberOfInstallments: n,
		AmountPerInstallment: fee.PerInstallment(amount, n),
		RemainingBalance:     amount,
		CreatedAt:            now,
		UpdatedAt:            now,
	})
	if err != nil {
		t.Fatalf("CreateFee() failed: %v", err)
	}
	return f
}

// CreateScheduledFee creates a Fee of total, along with its n installments.
func CreateScheduledFee(t *testing.T, repo fee.Repository, studentID int, total string, n int) fee.Fee {
	f := CreateFee(t, repo, studentID, total, n)
	if err := fee.GenerateSchedule(&f, time.Now().UTC()); err != nil {
		t.Fatalf("CreateScheduledFee() failed: %v", err)
	}
	f, err := repo.CreateSchedule(context.Background(), f)
	if err != nil {
		t.Fatalf("CreateScheduledFee() failed: %v", err)
	}
	return f
}
