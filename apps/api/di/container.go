package di

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/dig"

	echoapi "github.com/trezcool/schoolms/apps/api/echo"
	"github.com/trezcool/schoolms/core"
	"github.com/trezcool/schoolms/core/fee"
	"github.com/trezcool/schoolms/core/grade"
	"github.com/trezcool/schoolms/core/stage"
	"github.com/trezcool/schoolms/core/student"
	"github.com/trezcool/schoolms/core/user"
	locksvc "github.com/trezcool/schoolms/services/lock"
	logsvc "github.com/trezcool/schoolms/services/logger"
	notifysvc "github.com/trezcool/schoolms/services/notify"
	"github.com/trezcool/schoolms/storage/database"
	sqlxrepos "github.com/trezcool/schoolms/storage/database/sqlx"
)

type DBLoggerParam struct {
	dig.In
	Logger core.Logger `name:"dbLogger"`
}

func newLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	return logsvc.NewRollbarLogger(stdLogger, conf)
}

func newDBLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	return logsvc.NewRollbarLogger(stdLogger, conf)
}

// newDB creates, opens and migrates the app database.
func newDB(conf *core.Config, loggerParam DBLoggerParam) (*sqlx.DB, core.DB, *sql.DB) {
	setUp := func() (*sqlx.DB, error) {
		if err := database.CreateIfNotExist(conf); err != nil {
			return nil, err
		}

		db, err := database.Open(conf)
		if err != nil {
			return nil, err
		}

		if err = database.Migrate(db.DB); err != nil {
			_ = db.Close()
			return nil, err
		}
		return db, nil
	}

	db, err := setUp()
	if err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	return db, db, db.DB
}

// newLocker returns the Redis locker when Redis is configured, so that all API instances share the fee locks.
func newLocker(conf *core.Config, logger core.Logger) core.Locker {
	if !conf.Redis.Enabled() {
		logger.Warn("redis not configured: fee locks are local to this instance")
		return locksvc.NewLocalLocker()
	}

	client := redis.NewClient(&redis.Options{
		Addr:     conf.Redis.Addr,
		Password: conf.Redis.Password,
		DB:       conf.Redis.DB,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		logger.Fatal(fmt.Sprintf("connecting to redis: %v", err), err)
	}
	return locksvc.NewRedisLocker(client, conf, logger)
}

func newNotifier(conf *core.Config, logger core.Logger) core.Notifier {
	if conf.Debug && conf.WhatsApp.Token == "" {
		return notifysvc.NewConsoleService(conf)
	}
	return notifysvc.NewWhatsAppService(conf, logger)
}

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}

func newValidator(conf *core.Config, logger core.Logger, translator ut.Translator) *validator.Validate {
	validate := validator.New()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	fee.InitValidators(validate, translator)
	user.LoadCommonPasswords(conf.WorkDir, logger)
	return validate
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newDB))
	must(c.Provide(newLocker))
	must(c.Provide(newNotifier))
	must(c.Provide(newTranslator))
	must(c.Provide(newValidator))

	must(c.Provide(sqlxrepos.NewUserRepository, dig.As(new(user.Repository))))
	must(c.Provide(sqlxrepos.NewStageRepository, dig.As(new(stage.Repository))))
	must(c.Provide(sqlxrepos.NewGradeRepository, dig.As(new(grade.Repository))))
	must(c.Provide(sqlxrepos.NewStudentRepository, dig.As(new(student.Repository))))
	must(c.Provide(sqlxrepos.NewFeeRepository, dig.As(new(fee.Repository))))

	must(c.Provide(user.NewService))
	must(c.Provide(stage.NewService))
	must(c.Provide(grade.NewService))
	must(c.Provide(student.NewService))
	must(c.Provide(fee.NewService))

	must(c.Provide(echoapi.NewServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
