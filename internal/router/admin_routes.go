package router // router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/campus-booking/internal/handler"
	"github.com/iliyamo/campus-booking/internal/middleware"
	"github.com/iliyamo/campus-booking/internal/model"
)

// AdminHandlers serve /v1/admin.
type AdminHandlers struct {
	Approvals    *handler.ApprovalHandler
	Inscriptions *handler.InscriptionHandler
	Resources    *handler.ResourceHandler
	Blocks       *handler.BlockHandler
}

// RegisterAdmin registers administrative endpoints under /v1/admin.  The
// group admits every admin role; per-resource responsibility is checked
// by the services, and superuser-only routes add their own role gate.
func RegisterAdmin(e *echo.Echo, h AdminHandlers, g Guards) {
	grp := e.Group(
		"/v1/admin",
		middleware.JWTAuth(g.JWTSecret),
		middleware.RequireRole(model.AdminRoles...),
		g.limit(),
	)
	superuser := middleware.RequireRole(model.RoleSuperuser)

	// ---- Reservations ----
	grp.GET("/reservations", h.Approvals.List)
	grp.POST("/reservations/:id/approve", h.Approvals.Approve)
	grp.POST("/reservations/:id/reject", h.Approvals.Reject)
	grp.POST("/reservations/:id/check-out", h.Approvals.CheckOut)
	grp.POST("/reservations/:id/check-in", h.Approvals.CheckIn)
	grp.DELETE("/reservations/:id", h.Approvals.Delete, superuser)

	// ---- Inscriptions ----
	grp.GET("/inscriptions", h.Inscriptions.List)
	grp.POST("/inscriptions/:id/approve", h.Inscriptions.Approve)
	grp.POST("/inscriptions/:id/reject", h.Inscriptions.Reject)

	// ---- Resources ----
	grp.POST("/spaces", h.Resources.CreateSpace)
	grp.POST("/equipment", h.Resources.CreateEquipment)
	grp.POST("/workshops", h.Resources.CreateWorkshop)
	grp.PUT("/spaces/:id", h.Resources.UpdateSpace)
	grp.PUT("/equipment/:id", h.Resources.UpdateEquipment)
	grp.PUT("/workshops/:id", h.Resources.UpdateWorkshop)
	grp.DELETE("/spaces/:id", h.Resources.DeleteSpace)
	grp.DELETE("/equipment/:id", h.Resources.DeleteEquipment)
	grp.DELETE("/workshops/:id", h.Resources.DeleteWorkshop)

	// ---- Recurring blocks ----
	grp.GET("/recurring-blocks", h.Blocks.List, superuser)
	grp.POST("/recurring-blocks", h.Blocks.Create, superuser)
	grp.DELETE("/recurring-blocks/:id", h.Blocks.Delete, superuser)
}
