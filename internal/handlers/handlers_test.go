package handlers

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"testing"
	"time"

	"org-dashboard/config"
	"org-dashboard/internal/gateway"
	"org-dashboard/internal/services"
	_ "org-dashboard/migrations"

	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/tests"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	app    *tests.TestApp
	gw     *gateway.Gateway
	bucket *gateway.MemoryBucket
	user   *core.Record
	token  string
}

func newFixture(t testing.TB) *fixture {
	t.Helper()

	app, err := tests.NewTestApp(t.TempDir())
	require.NoError(t, err)

	cfg := &config.Config{
		PublicURL:          "http://dash.test",
		Location:           time.UTC,
		MediaSigningSecret: "test-secret",
		SignedURLTTL:       time.Hour,
		DefaultPageSize:    10,
		MaxPageSize:        100,
	}
	signer, err := gateway.NewSigner(cfg, nil, nil)
	require.NoError(t, err)
	bucket := gateway.NewMemoryBucket()

	users, err := app.FindCollectionByNameOrId("users")
	require.NoError(t, err)
	user := core.NewRecord(users)
	user.Set("name", "Alice")
	user.SetEmail("alice@example.com")
	user.SetPassword("password123")
	require.NoError(t, app.Save(user))

	token, err := user.NewAuthToken()
	require.NoError(t, err)

	return &fixture{
		app:    app,
		gw:     gateway.New(app, cfg, bucket, signer, nil),
		bucket: bucket,
		user:   user,
		token:  token,
	}
}

func (f *fixture) routes() *Routes {
	schedules := services.NewScheduleService(f.gw, nil)
	users := services.NewUserService(f.gw)

	return &Routes{
		Schedules: NewScheduleHandler(schedules, f.gw.Config.Location),
		Notices:   NewNoticeHandler(services.NewNoticeService(f.gw)),
		Users:     NewUserHandler(users),
		Movies:    NewMovieHandler(services.NewMovieService(f.gw)),
		Media:     NewMediaHandler(f.bucket, f.gw.Signer),
		Auth:      NewAuthHandler(services.NewAuthService(f.gw, nil), users),
		Health:    func(context.Context) error { return nil },
	}
}

// scenario runs s against the fixture app. Read-only scenarios default to
// expecting no app events; scenarios that write list the events they check.
func (f *fixture) scenario(s tests.ApiScenario) *tests.ApiScenario {
	s.TestAppFactory = func(testing.TB) *tests.TestApp { return f.app }
	s.BeforeTestFunc = func(t testing.TB, app *tests.TestApp, e *core.ServeEvent) {
		f.routes().Register(e)
	}
	if s.ExpectedEvents == nil {
		s.ExpectedEvents = map[string]int{"*": 0}
	}
	return &s
}

func (f *fixture) auth() map[string]string {
	return map[string]string{"Authorization": f.token}
}

func (f *fixture) schedule(t testing.TB) string {
	t.Helper()

	s, err := services.NewScheduleService(f.gw, nil).
		CreateSchedule(context.Background(), time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC), "Hall", "Review", f.user.Id)
	require.NoError(t, err)
	return s.ID
}

func TestScheduleRoutes(t *testing.T) {
	t.Run("anonymous caller is rejected", func(t *testing.T) {
		f := newFixture(t)
		f.scenario(tests.ApiScenario{
			Method:          http.MethodGet,
			URL:             "/api/v1/schedules",
			ExpectedStatus:  401,
			ExpectedContent: []string{`"data":{}`},
		}).Test(t)
	})

	t.Run("create from editor form", func(t *testing.T) {
		f := newFixture(t)
		f.scenario(tests.ApiScenario{
			Method:          http.MethodPost,
			URL:             "/api/v1/schedules",
			Headers:         f.auth(),
			Body:            strings.NewReader(`{"date":"2024-05-01","time":"09:30","place":"Hall","content":"Review"}`),
			ExpectedStatus:  201,
			ExpectedContent: []string{`"place":"Hall"`, `"owner_id":"` + f.user.Id + `"`},
			ExpectedEvents:  map[string]int{"OnRecordCreate": 1, "OnRecordAfterCreateSuccess": 1},
		}).Test(t)
	})

	t.Run("invalid form reports fields", func(t *testing.T) {
		f := newFixture(t)
		f.scenario(tests.ApiScenario{
			Method:          http.MethodPost,
			URL:             "/api/v1/schedules",
			Headers:         f.auth(),
			Body:            strings.NewReader(`{"date":"tomorrow","place":"","content":"Review"}`),
			ExpectedStatus:  400,
			ExpectedContent: []string{`"date":{"code":"validation_datetime"`, `"place":{"code":"validation_required"`},
		}).Test(t)
	})

	t.Run("detail lists actions", func(t *testing.T) {
		f := newFixture(t)
		id := f.schedule(t)
		f.scenario(tests.ApiScenario{
			Method:         http.MethodGet,
			URL:            "/api/v1/schedules/" + id,
			Headers:        f.auth(),
			ExpectedStatus: 200,
			ExpectedContent: []string{
				`"mode":"detail"`,
				`"actions":["attend","decline","delete","settings"]`,
				`"attendance":0`,
			},
		}).Test(t)
	})

	t.Run("unknown schedule", func(t *testing.T) {
		f := newFixture(t)
		f.scenario(tests.ApiScenario{
			Method:         http.MethodGet,
			URL:             "/api/v1/schedules/missing",
			Headers:         f.auth(),
			ExpectedStatus:  404,
			ExpectedContent: []string{`"status":404`},
		}).Test(t)
	})

	t.Run("attendance rejects unset", func(t *testing.T) {
		f := newFixture(t)
		id := f.schedule(t)
		f.scenario(tests.ApiScenario{
			Method:          http.MethodPut,
			URL:             "/api/v1/schedules/" + id + "/attendance",
			Headers:         f.auth(),
			Body:            strings.NewReader(`{"status":0}`),
			ExpectedStatus:  400,
			ExpectedContent: []string{`"status":{"code":"validation_oneof"`},
		}).Test(t)
	})

	t.Run("attending lists the caller", func(t *testing.T) {
		f := newFixture(t)
		id := f.schedule(t)
		f.scenario(tests.ApiScenario{
			Method:          http.MethodPut,
			URL:             "/api/v1/schedules/" + id + "/attendance",
			Headers:         f.auth(),
			Body:            strings.NewReader(`{"status":1}`),
			ExpectedStatus:  200,
			ExpectedContent: []string{`"status":1`, `"participants":[{"user_id":"` + f.user.Id + `","name":"Alice"`},
			ExpectedEvents:  map[string]int{"OnRecordCreate": 1},
		}).Test(t)
	})

	t.Run("declined schedule is struck through", func(t *testing.T) {
		f := newFixture(t)
		id := f.schedule(t)
		_, err := services.NewScheduleService(f.gw, nil).SetAttendance(context.Background(), id, f.user.Id, 2)
		require.NoError(t, err)

		f.scenario(tests.ApiScenario{
			Method:          http.MethodGet,
			URL:             "/api/v1/calendar/events",
			Headers:         f.auth(),
			ExpectedStatus:  200,
			ExpectedContent: []string{`"title":"Review @ Hall"`, `"date":"2024-05-01"`, `"declined":true`},
		}).Test(t)
	})

	t.Run("draft for a clicked date", func(t *testing.T) {
		f := newFixture(t)
		f.scenario(tests.ApiScenario{
			Method:          http.MethodGet,
			URL:             "/api/v1/calendar/draft?date=2024-06-10",
			Headers:         f.auth(),
			ExpectedStatus:  200,
			ExpectedContent: []string{`"mode":"create"`, `"date":"2024-06-10"`, `"time":"12:00"`},
		}).Test(t)
	})
}

func TestMediaRoute(t *testing.T) {
	t.Run("forged token", func(t *testing.T) {
		f := newFixture(t)
		f.scenario(tests.ApiScenario{
			Method:         http.MethodGet,
			URL:             "/api/v1/media?token=not-a-token",
			ExpectedStatus:  403,
			ExpectedContent: []string{`"status":403`},
		}).Test(t)
	})

	t.Run("signed url serves the object without a session", func(t *testing.T) {
		f := newFixture(t)
		key := "private/notice/n1/readme.txt"
		f.bucket.Put(key, []byte("hello media"))

		u, err := f.gw.Signer.SignedURL(context.Background(), key)
		require.NoError(t, err)

		f.scenario(tests.ApiScenario{
			Method:          http.MethodGet,
			URL:             strings.TrimPrefix(u.URL, "http://dash.test"),
			ExpectedStatus:  200,
			ExpectedContent: []string{"hello media"},
		}).Test(t)
	})
}

func TestAuthRoutes(t *testing.T) {
	t.Run("session", func(t *testing.T) {
		f := newFixture(t)
		f.scenario(tests.ApiScenario{
			Method:          http.MethodGet,
			URL:             "/api/v1/auth/session",
			Headers:         f.auth(),
			ExpectedStatus:  200,
			ExpectedContent: []string{`"name":"Alice"`},
		}).Test(t)
	})

	t.Run("sign in with wrong password", func(t *testing.T) {
		f := newFixture(t)
		f.scenario(tests.ApiScenario{
			Method:          http.MethodPost,
			URL:             "/api/v1/auth/sign-in",
			Body:            strings.NewReader(`{"email":"alice@example.com","password":"nope"}`),
			ExpectedStatus:  400,
			ExpectedContent: []string{"Failed to authenticate."},
		}).Test(t)
	})

	t.Run("sign in", func(t *testing.T) {
		f := newFixture(t)
		f.scenario(tests.ApiScenario{
			Method:          http.MethodPost,
			URL:             "/api/v1/auth/sign-in",
			Body:            strings.NewReader(`{"email":"alice@example.com","password":"password123"}`),
			ExpectedStatus:  200,
			ExpectedContent: []string{`"token":`, `"record":`},
			ExpectedEvents:  map[string]int{"OnRecordAuthRequest": 1},
		}).Test(t)
	})

	t.Run("reset for unknown email does not leak", func(t *testing.T) {
		f := newFixture(t)
		f.scenario(tests.ApiScenario{
			Method:         http.MethodPost,
			URL:            "/api/v1/auth/password-reset",
			Body:           strings.NewReader(`{"email":"nobody@example.com"}`),
			ExpectedStatus: 204,
		}).Test(t)
	})

	t.Run("confirm with mismatched passwords", func(t *testing.T) {
		f := newFixture(t)
		f.scenario(tests.ApiScenario{
			Method:          http.MethodPost,
			URL:             "/api/v1/auth/password-reset/confirm",
			Body:            strings.NewReader(`{"token":"x","password":"new-password","password_confirm":"other-password"}`),
			ExpectedStatus:  400,
			ExpectedContent: []string{`"password_confirm":{"code":"validation_eqfield"`},
		}).Test(t)
	})
}

// multipartBody builds a form with a single file field. The returned reader
// hides its length so body limits are enforced while the form is parsed.
func multipartBody(t testing.TB, field, name, content string) (io.Reader, string) {
	t.Helper()

	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)
	part, err := w.CreateFormFile(field, name)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	return io.MultiReader(buf), w.FormDataContentType()
}

func TestUploadRoutes(t *testing.T) {
	newNotice := func(t testing.TB, f *fixture) string {
		n, err := services.NewNoticeService(f.gw).CreateNotice(context.Background(), "Handbook", "See attachment.", f.user.Id)
		require.NoError(t, err)
		return n.ID
	}

	t.Run("attachment is stored", func(t *testing.T) {
		f := newFixture(t)
		id := newNotice(t, f)
		body, contentType := multipartBody(t, "file", "handbook.pdf", "%PDF-1.4 handbook")

		headers := f.auth()
		headers["Content-Type"] = contentType
		f.scenario(tests.ApiScenario{
			Method:          http.MethodPut,
			URL:             "/api/v1/notices/" + id + "/file",
			Headers:         headers,
			Body:            body,
			ExpectedStatus:  200,
			ExpectedContent: []string{`"file_name":"handbook.pdf"`},
			ExpectedEvents:  map[string]int{"OnRecordCreate": 1},
			AfterTestFunc: func(t testing.TB, app *tests.TestApp, res *http.Response) {
				assert.True(t, f.bucket.Has("private/notice/"+id+"/handbook.pdf"))
			},
		}).Test(t)
	})

	t.Run("missing file field", func(t *testing.T) {
		f := newFixture(t)
		id := newNotice(t, f)
		body, contentType := multipartBody(t, "other", "handbook.pdf", "x")

		headers := f.auth()
		headers["Content-Type"] = contentType
		f.scenario(tests.ApiScenario{
			Method:          http.MethodPut,
			URL:             "/api/v1/notices/" + id + "/file",
			Headers:         headers,
			Body:            body,
			ExpectedStatus:  400,
			ExpectedContent: []string{"Missing file."},
		}).Test(t)
	})

	t.Run("oversized body is rejected", func(t *testing.T) {
		f := newFixture(t)
		id := newNotice(t, f)
		body, contentType := multipartBody(t, "file", "big.bin", strings.Repeat("x", 4096))

		headers := f.auth()
		headers["Content-Type"] = contentType
		s := f.scenario(tests.ApiScenario{
			Method:          http.MethodPut,
			URL:             "/api/v1/notices/" + id + "/file",
			Headers:         headers,
			Body:            body,
			ExpectedStatus:  413,
			ExpectedContent: []string{`"status":413`},
		})
		s.BeforeTestFunc = func(t testing.TB, app *tests.TestApp, e *core.ServeEvent) {
			routes := f.routes()
			routes.MaxUploadBytes = 1024
			routes.Register(e)
		}
		s.Test(t)

		assert.False(t, f.bucket.Has("private/notice/"+id+"/big.bin"))
	})
}

func TestListRoutes(t *testing.T) {
	f := newFixture(t)
	notices := services.NewNoticeService(f.gw)
	for _, title := range []string{"Holiday schedule", "New coffee machine"} {
		_, err := notices.CreateNotice(context.Background(), title, "Details inside.", f.user.Id)
		require.NoError(t, err)
	}

	f.scenario(tests.ApiScenario{
		Method:         http.MethodGet,
		URL:            "/api/v1/notices?q=COFFEE&per_page=500",
		Headers:        f.auth(),
		ExpectedStatus: 200,
		ExpectedContent: []string{
			`"title":"New coffee machine"`,
			`"author_name":"Alice"`,
			`"per_page":100`,
			`"total_items":1`,
		},
		NotExpectedContent: []string{"Holiday"},
	}).Test(t)
}

func TestHealthRoute(t *testing.T) {
	f := newFixture(t)
	s := f.scenario(tests.ApiScenario{
		Method:          http.MethodGet,
		URL:             "/health",
		ExpectedStatus:  503,
		ExpectedContent: []string{`"status":"unhealthy"`},
	})
	s.BeforeTestFunc = func(t testing.TB, app *tests.TestApp, e *core.ServeEvent) {
		routes := f.routes()
		routes.Health = func(context.Context) error { return errors.New("redis down") }
		routes.Register(e)
	}
	s.Test(t)
}
