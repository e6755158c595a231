package handlers

import (
	"context"
	"net/http"

	"org-dashboard/security"

	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/tools/router"
)

// Routes wires the dashboard handlers into the PocketBase router.
type Routes struct {
	Schedules *ScheduleHandler
	Notices   *NoticeHandler
	Users     *UserHandler
	Movies    *MovieHandler
	Media     *MediaHandler
	Auth      *AuthHandler

	// SignInLimiter throttles sign-in attempts per client address. Optional.
	SignInLimiter *security.RateLimiter
	// MaxUploadBytes caps multipart upload bodies. Zero keeps the
	// PocketBase default.
	MaxUploadBytes int64
	// Health reports whether backing services are reachable. Optional.
	Health func(ctx context.Context) error
	// Metrics serves the Prometheus registry when set.
	Metrics http.Handler
}

func (r *Routes) Register(se *core.ServeEvent) {
	v1 := se.Router.Group("/api/v1")

	// Public endpoints
	signIn := v1.POST("/auth/sign-in", r.Auth.SignIn)
	if r.SignInLimiter != nil {
		signIn.BindFunc(r.SignInLimiter.ByIP())
	}
	v1.POST("/auth/password-reset", r.Auth.RequestPasswordReset)
	v1.POST("/auth/password-reset/confirm", r.Auth.ConfirmPasswordReset)
	v1.GET("/media", r.Media.Serve)

	// Signed in endpoints
	private := v1.Group("")
	private.Bind(apis.RequireAuth(usersCollection))

	private.GET("/auth/session", r.Auth.Session)
	private.POST("/auth/sign-out", r.Auth.SignOut)
	private.PATCH("/auth/password", r.Auth.UpdatePassword)

	// Schedules and calendar
	private.GET("/schedules", r.Schedules.ListSchedules)
	private.POST("/schedules", r.Schedules.CreateSchedule)
	private.GET("/schedules/{id}", r.Schedules.GetSchedule)
	private.PATCH("/schedules/{id}", r.Schedules.UpdateSchedule)
	private.DELETE("/schedules/{id}", r.Schedules.DeleteSchedule)
	private.PUT("/schedules/{id}/attendance", r.Schedules.SetAttendance)
	private.GET("/schedules/{id}/participants", r.Schedules.Participants)
	private.GET("/calendar/events", r.Schedules.CalendarEvents)
	private.GET("/calendar/draft", r.Schedules.Draft)

	// Notices
	private.GET("/notices", r.Notices.ListNotices)
	private.POST("/notices", r.Notices.CreateNotice)
	private.GET("/notices/{id}", r.Notices.GetNotice)
	private.PATCH("/notices/{id}", r.Notices.UpdateNotice)
	private.DELETE("/notices/{id}", r.Notices.DeleteNotice)
	private.GET("/notices/{id}/file", r.Notices.GetAttachment)
	r.withUploadLimit(private.PUT("/notices/{id}/file", r.Notices.UploadAttachment))
	private.DELETE("/notices/{id}/file", r.Notices.DeleteAttachment)

	// Users
	private.GET("/users", r.Users.ListUsers)
	private.POST("/users", r.Users.CreateUser)
	private.GET("/users/{id}", r.Users.GetUser)
	private.PATCH("/users/{id}", r.Users.UpdateUser)
	private.DELETE("/users/{id}", r.Users.DeleteUser)
	private.GET("/groups", r.Users.ListGroups)
	private.GET("/statuses", r.Users.ListStatuses)

	// Movies
	private.GET("/movies", r.Movies.ListMovies)
	r.withUploadLimit(private.POST("/movies", r.Movies.UploadMovie))
	private.GET("/movies/{id}", r.Movies.GetMovie)
	private.PATCH("/movies/{id}", r.Movies.UpdateMovie)
	private.DELETE("/movies/{id}", r.Movies.DeleteMovie)
	private.GET("/movies/{id}/url", r.Movies.SignedURL)

	// Health check
	se.Router.GET("/health", func(e *core.RequestEvent) error {
		if r.Health != nil {
			if err := r.Health(e.Request.Context()); err != nil {
				return e.JSON(http.StatusServiceUnavailable, map[string]string{
					"status": "unhealthy",
					"error":  err.Error(),
				})
			}
		}
		return e.JSON(http.StatusOK, map[string]string{"status": "healthy"})
	})

	if r.Metrics != nil {
		se.Router.GET("/metrics", apis.WrapStdHandler(r.Metrics))
	}
}

// withUploadLimit raises the body limit of an upload route.
func (r *Routes) withUploadLimit(route *router.Route[*core.RequestEvent]) {
	if r.MaxUploadBytes > 0 {
		route.Bind(apis.BodyLimit(r.MaxUploadBytes))
	}
}
