package tests

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"

	. "github.com/trezcool/schoolms/apps/api/echo"
	"github.com/trezcool/schoolms/core"
	"github.com/trezcool/schoolms/core/fee"
	"github.com/trezcool/schoolms/core/grade"
	"github.com/trezcool/schoolms/core/stage"
	"github.com/trezcool/schoolms/core/student"
	"github.com/trezcool/schoolms/core/user"
	locksvc "github.com/trezcool/schoolms/services/lock"
	notifysvc "github.com/trezcool/schoolms/services/notify"
	inmemdb "github.com/trezcool/schoolms/storage/database/inmem"
	"github.com/trezcool/schoolms/tests"
)

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

type testApp struct {
	*Server
	conf     *core.Config
	notifier *notifysvc.ConsoleServiceMock

	usrRepo     user.Repository
	stageRepo   stage.Repository
	gradeRepo   grade.Repository
	studentRepo student.Repository
	feeRepo     fee.Repository
}

func setup(t *testing.T) testApp {
	conf := core.NewTestConfig()
	logger := testutil.NewLogger(conf)

	// set up DB & repos
	db := inmemdb.NewDB()
	app := testApp{
		conf:        conf,
		notifier:    notifysvc.NewConsoleServiceMock(conf),
		usrRepo:     inmemdb.NewUserRepository(db),
		stageRepo:   inmemdb.NewStageRepository(db),
		gradeRepo:   inmemdb.NewGradeRepository(db),
		studentRepo: inmemdb.NewStudentRepository(db),
		feeRepo:     inmemdb.NewFeeRepository(db),
	}

	// set up validation
	_en := en.New()
	translator, _ := ut.New(_en, _en).GetTranslator("en")
	validate := validator.New()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	fee.InitValidators(validate, translator)

	// set up server
	app.Server = NewServer(ServerDeps{
		Conf:       conf,
		Logger:     logger,
		Notifier:   app.notifier,
		Validate:   validate,
		Translator: translator,
		UserSvc:    user.NewService(app.usrRepo),
		StageSvc:   stage.NewService(app.stageRepo),
		GradeSvc:   grade.NewService(app.gradeRepo, app.stageRepo),
		StudentSvc: student.NewService(app.studentRepo, app.gradeRepo),
		FeeSvc: fee.NewService(
			app.feeRepo, app.studentRepo, locksvc.NewLocalLocker(), app.notifier, conf, logger,
		),
	})
	return app
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

// do serves an authenticated request and returns the recorded response.
func (app testApp) do(method, path, token string, data ...[]byte) *httptest.ResponseRecorder {
	req, rec := newAuthRequest(method, path, token, data...)
	app.ServeHTTP(rec, req)
	return rec
}

func (app testApp) runTests(t *testing.T, tests []httpTest) {
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			method := tt.method
			if method == "" {
				method = http.MethodGet
			}
			rec := app.do(method, tt.path, tt.token, tt.body)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func getToken(t *testing.T, conf *core.Config, usr user.User) string {
	claims := GetUserClaims(conf, usr)
	token, err := GenerateToken(conf, claims)
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

func marchallList(t *testing.T, objs ...interface{}) []byte {
	if objs == nil {
		objs = []interface{}{}
	}
	data, err := json.Marshal(objs)
	if err != nil {
		t.Fatalf("marchallList() failed: %v", err)
	}
	return data
}

func unmarchall(t *testing.T, rec *httptest.ResponseRecorder, obj interface{}) {
	if err := json.Unmarshal(rec.Body.Bytes(), obj); err != nil {
		t.Fatalf("unmarchall() failed: %v; body %s", err, rec.Body.String())
	}
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	wantCode := tt.wantCode
	if wantCode == 0 {
		wantCode = http.StatusOK
	}
	assert.Equal(t, wantCode, rec.Code, "body: %s", rec.Body.String())
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}
