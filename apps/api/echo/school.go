package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/schoolms/core/fee"
	"github.com/trezcool/schoolms/core/grade"
	"github.com/trezcool/schoolms/core/stage"
	"github.com/trezcool/schoolms/core/student"
)

// Stages

type stageApi struct {
	svc      *stage.Service
	validate *validator.Validate
}

func registerStageAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := stageApi{svc: deps.StageSvc, validate: deps.Validate}

	sg := g.Group("/stages", jwt)
	sg.GET("", api.query)
	sg.POST("", api.create)
	sg.GET("/:id", api.retrieve)
	sg.PUT("/:id", api.update)
	sg.DELETE("/:id", api.destroy, adminMiddleware())
}

func (api *stageApi) query(ctx echo.Context) error {
	stages, err := api.svc.QueryAll(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying stages")
	}
	return ctx.JSON(http.StatusOK, stages)
}

func (api *stageApi) create(ctx echo.Context) error {
	var data stage.NewStage
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewStage")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	stg, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating stage")
	}
	return ctx.JSON(http.StatusCreated, stg)
}

func (api *stageApi) retrieve(ctx echo.Context) error {
	id, err := paramID(ctx)
	if err != nil {
		return err
	}
	stg, err := api.svc.GetByID(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "finding stage")
	}
	return ctx.JSON(http.StatusOK, stg)
}

func (api *stageApi) update(ctx echo.Context) error {
	id, err := paramID(ctx)
	if err != nil {
		return err
	}
	var data stage.UpdateStage
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateStage")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	stg, err := api.svc.Update(ctx.Request().Context(), id, data)
	if err != nil {
		return errors.Wrap(err, "updating stage")
	}
	return ctx.JSON(http.StatusOK, stg)
}

func (api *stageApi) destroy(ctx echo.Context) error {
	id, err := paramID(ctx)
	if err != nil {
		return err
	}
	if err = api.svc.Delete(ctx.Request().Context(), id); err != nil {
		return errors.Wrap(err, "deleting stage")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Grades

type gradeApi struct {
	svc      *grade.Service
	validate *validator.Validate
}

func registerGradeAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := gradeApi{svc: deps.GradeSvc, validate: deps.Validate}

	gg := g.Group("/grades", jwt)
	gg.GET("", api.query)
	gg.POST("", api.create)
	gg.GET("/:id", api.retrieve)
	gg.PUT("/:id", api.update)
	gg.DELETE("/:id", api.destroy, adminMiddleware())
}

func (api *gradeApi) query(ctx echo.Context) error {
	grades, err := api.svc.QueryAll(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying grades")
	}
	return ctx.JSON(http.StatusOK, grades)
}

func (api *gradeApi) create(ctx echo.Context) error {
	var data grade.NewGrade
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewGrade")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	grd, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating grade")
	}
	return ctx.JSON(http.StatusCreated, grd)
}

func (api *gradeApi) retrieve(ctx echo.Context) error {
	id, err := paramID(ctx)
	if err != nil {
		return err
	}
	grd, err := api.svc.GetByID(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "finding grade")
	}
	return ctx.JSON(http.StatusOK, grd)
}

func (api *gradeApi) update(ctx echo.Context) error {
	id, err := paramID(ctx)
	if err != nil {
		return err
	}
	var data grade.UpdateGrade
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateGrade")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	grd, err := api.svc.Update(ctx.Request().Context(), id, data)
	if err != nil {
		return errors.Wrap(err, "updating grade")
	}
	return ctx.JSON(http.StatusOK, grd)
}

func (api *gradeApi) destroy(ctx echo.Context) error {
	id, err := paramID(ctx)
	if err != nil {
		return err
	}
	if err = api.svc.Delete(ctx.Request().Context(), id); err != nil {
		return errors.Wrap(err, "deleting grade")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Students

type studentApi struct {
	svc      *student.Service
	feeSvc   *fee.Service
	validate *validator.Validate
}

// StudentDetail is a Student along with their fees.
type StudentDetail struct {
	student.Student
	Fees []fee.Fee `json:"fees"`
}

func registerStudentAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := studentApi{svc: deps.StudentSvc, feeSvc: deps.FeeSvc, validate: deps.Validate}

	sg := g.Group("/students", jwt)
	sg.GET("", api.query)
	sg.POST("", api.create)
	sg.GET("/:id", api.retrieve)
	sg.PUT("/:id", api.update)
	sg.DELETE("/:id", api.destroy, adminMiddleware())
}

func (api *studentApi) query(ctx echo.Context) error {
	students, err := api.svc.QueryAll(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying students")
	}
	return ctx.JSON(http.StatusOK, students)
}

func (api *studentApi) create(ctx echo.Context) error {
	var data student.NewStudent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewStudent")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	std, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating student")
	}
	return ctx.JSON(http.StatusCreated, std)
}

func (api *studentApi) retrieve(ctx echo.Context) error {
	id, err := paramID(ctx)
	if err != nil {
		return err
	}
	reqCtx := ctx.Request().Context()
	std, err := api.svc.GetByID(reqCtx, id)
	if err != nil {
		return errors.Wrap(err, "finding student")
	}
	fees, err := api.feeSvc.Query(reqCtx, fee.QueryFilter{StudentID: std.ID})
	if err != nil {
		return errors.Wrap(err, "querying student fees")
	}
	return ctx.JSON(http.StatusOK, StudentDetail{Student: std, Fees: fees})
}

func (api *studentApi) update(ctx echo.Context) error {
	id, err := paramID(ctx)
	if err != nil {
		return err
	}
	var data student.UpdateStudent
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateStudent")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	std, err := api.svc.Update(ctx.Request().Context(), id, data)
	if err != nil {
		return errors.Wrap(err, "updating student")
	}
	return ctx.JSON(http.StatusOK, std)
}

func (api *studentApi) destroy(ctx echo.Context) error {
	id, err := paramID(ctx)
	if err != nil {
		return err
	}
	if err = api.svc.Delete(ctx.Request().Context(), id); err != nil {
		return errors.Wrap(err, "deleting student")
	}
	return ctx.NoContent(http.StatusNoContent)
}
