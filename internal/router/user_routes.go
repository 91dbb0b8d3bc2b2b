package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/campus-booking/internal/handler"
	"github.com/iliyamo/campus-booking/internal/middleware"
	"github.com/iliyamo/campus-booking/internal/model"
)

// UserHandlers serve the signed-in side of the API.
type UserHandlers struct {
	Reservations  *handler.ReservationHandler
	Inscriptions  *handler.InscriptionHandler
	Notifications *handler.NotificationHandler
}

// RegisterUser registers endpoints available to every signed-in account
// under /v1: submitting reservations, enrolling in workshops and reading
// notifications.
func RegisterUser(e *echo.Echo, h UserHandlers, g Guards) {
	grp := e.Group(
		"/v1",
		middleware.JWTAuth(g.JWTSecret),
		middleware.RequireRole(model.RoleUser, model.RoleAdminReservation, model.RoleAdminResource, model.RoleSuperuser),
		g.limit(),
	)

	grp.POST("/reservations", h.Reservations.Submit)
	grp.POST("/reservations/cart", h.Reservations.SubmitCart)
	grp.GET("/my-reservations", h.Reservations.ListMine)

	grp.POST("/workshops/:id/inscriptions", h.Inscriptions.Enroll)

	grp.GET("/notifications", h.Notifications.List)
	grp.PUT("/notifications/read-all", h.Notifications.MarkAllRead)
	grp.PUT("/notifications/:id/read", h.Notifications.MarkRead)
}
