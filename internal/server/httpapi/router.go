// Package httpapi exposes the services as a JSON HTTP API built on gin.
package httpapi

import (
	"github.com/gin-gonic/gin"

	"github.com/dmitrijs2005/eventhub/internal/logging"
	"github.com/dmitrijs2005/eventhub/internal/server/models"
	"github.com/dmitrijs2005/eventhub/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/eventhub/internal/server/services"
)

// NoticeSource lists recently dispatched notifications.
type NoticeSource interface {
	Recent() []models.Notification
}

// Deps are the collaborators the API needs. Notices may be nil.
// ExposeSignupCode echoes SMS codes in the register response for
// deployments without a real SMS gateway.
type Deps struct {
	Store            repomanager.Store
	Users            *services.UserService
	Signup           *services.SignupService
	Catalog          *services.CatalogService
	Registrations    *services.RegistrationService
	Admin            *services.AdminService
	Images           *services.ImageService
	Notices          NoticeSource
	CORSOrigins      []string
	ExposeSignupCode bool
	Log              logging.Logger
}

type handler struct {
	store         repomanager.Store
	users         *services.UserService
	signups       *services.SignupService
	catalog       *services.CatalogService
	registrations *services.RegistrationService
	admin         *services.AdminService
	images        *services.ImageService
	notices       NoticeSource
	exposeCode    bool
	log           logging.Logger
}

// NewRouter wires middleware and routes into a gin engine.
func NewRouter(d Deps) *gin.Engine {
	log := d.Log
	if log == nil {
		log = logging.Nop()
	}
	log = log.With("module", "http")

	h := &handler{
		store:         d.Store,
		users:         d.Users,
		signups:       d.Signup,
		catalog:       d.Catalog,
		registrations: d.Registrations,
		admin:         d.Admin,
		images:        d.Images,
		notices:       d.Notices,
		exposeCode:    d.ExposeSignupCode,
		log:           log,
	}

	r := gin.New()
	r.Use(requestID(), recovery(log), accessLog(log), cors(d.CORSOrigins))

	api := r.Group("/api")
	api.GET("/health", h.health)

	authGroup := api.Group("/auth")
	authGroup.POST("/register", h.signup)
	authGroup.POST("/verify-sms", h.verifySMS)
	authGroup.POST("/login", h.login)
	authGroup.GET("/me", h.authenticate(), h.me)

	admin := requireRole(models.RoleAdmin)

	events := api.Group("/events")
	events.GET("", h.listEvents)
	events.GET("/:id", h.getEvent)
	events.POST("", h.authenticate(), admin, h.createEvent)
	events.PUT("/:id", h.authenticate(), admin, h.updateEvent)
	events.DELETE("/:id", h.authenticate(), admin, h.deleteEvent)
	events.GET("/:id/registrations", h.authenticate(), admin, h.eventRegistrations)
	events.POST("/:id/image-upload", h.authenticate(), admin, h.presignImage)

	regs := api.Group("/registrations", h.authenticate())
	regs.GET("/me", h.myRegistrations)
	regs.POST("", h.enroll)
	regs.DELETE("/event/:event_id", h.cancelEnrollment)

	adm := api.Group("/admin", h.authenticate(), admin)
	adm.GET("/summary", h.adminSummary)
	adm.GET("/events/:id/registrations.xlsx", h.exportRegistrations)
	adm.GET("/users", h.listUsers)
	adm.PUT("/users/:id/active", h.setUserActive)
	adm.GET("/notifications", h.recentNotifications)

	return r
}
