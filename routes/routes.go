package routes

import (
	"github.com/gofiber/fiber/v2"

	"verein-backend/controllers"
	"verein-backend/middlewares"
)

// Register wires all HTTP routes.
func Register(app *fiber.App) {
	api := app.Group("/api")

	// Public auth endpoints
	api.Post("/registration", controllers.Register)
	api.Post("/login", controllers.Login)
	api.Post("/logout", controllers.Logout)

	// Protected endpoints (JWT auth with club schema claim)
	protected := api.Group("")
	protected.Use(middlewares.IsAuthenticatedHeader())

	// Notices
	protected.Post("/notice", controllers.CreateNotice)
	protected.Get("/notices", controllers.GetNotices)

	// Events & attendance polls
	protected.Post("/event", controllers.CreateEvent)
	protected.Get("/events", controllers.GetEvents)
	protected.Get("/event/:id", controllers.GetEvent)
	protected.Post("/event/:id/attendance", controllers.CastAttendance)

	// Members & roles
	protected.Post("/member", controllers.AddMember)
	protected.Get("/members", controllers.GetMembers)
	protected.Put("/member/:userId/role", controllers.ChangeRole)

	// Comments
	protected.Post("/comment", controllers.CreateComment)
	protected.Get("/comments", controllers.ListComments)
	protected.Put("/comment/:id", controllers.EditComment)
	protected.Delete("/comment/:id", controllers.DeleteComment)

	// Push registration
	protected.Post("/device-token", controllers.RegisterToken)
}
