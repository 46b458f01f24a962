package routes

import (
	"rawdahkids_go/controllers"
	"rawdahkids_go/middleware"
	"rawdahkids_go/models"
	"rawdahkids_go/services/websocket"

	"github.com/gofiber/fiber/v2"
	fiberws "github.com/gofiber/websocket/v2"
)

// SetupRoutes configures all application routes
func SetupRoutes(app *fiber.App, wsHub *websocket.Hub) {
	authController := &controllers.AuthController{}
	userController := &controllers.UserController{}
	childController := &controllers.ChildController{}
	periodController := &controllers.PeriodController{}
	assignmentController := &controllers.AssignmentController{}
	reportController := &controllers.ReportController{}
	productController := &controllers.ProductController{}
	cartController := &controllers.CartController{}
	orderController := &controllers.OrderController{}
	vehicleController := &controllers.VehicleController{}
	contentController := &controllers.ContentController{}
	notificationController := &controllers.NotificationController{}
	logController := &controllers.LogController{}
	healthController := &controllers.HealthController{}
	wsController := controllers.NewWebSocketController(wsHub)

	api := app.Group("/api")

	// Public routes (no authentication required)
	public := api.Group("/public")
	public.Get("/health", healthController.Health)
	public.Post("/login", authController.Login)
	public.Post("/register", authController.Register)
	public.Post("/password-reset", authController.ResetPasswordWithToken)
	public.Get("/about", contentController.GetAboutSections)
	public.Get("/instagram/feed", contentController.GetInstagramFeed)
	public.Get("/products", productController.GetProducts)
	public.Get("/products/:id", productController.GetProduct)

	// Protected routes (authentication required)
	protected := api.Group("", middleware.JWTMiddleware(), middleware.LogActivityMiddleware())

	// Auth/profile
	auth := protected.Group("/auth")
	auth.Post("/logout", authController.Logout)
	auth.Get("/profile", authController.GetProfile)
	auth.Put("/profile", authController.UpdateProfile)
	auth.Put("/password", authController.ChangePassword)
	auth.Post("/password-reset-token", middleware.RequireAdmin(), authController.GeneratePasswordResetToken)

	// User administration (admin only)
	users := protected.Group("/users", middleware.RequireAdmin())
	users.Get("/", userController.GetUsers)
	users.Get("/pending", userController.GetPendingUsers)
	users.Get("/:id", userController.GetUser)
	users.Put("/:id", userController.UpdateUser)
	users.Post("/:id/approve", userController.ApproveUser)
	users.Post("/:id/reject", userController.RejectUser)
	users.Delete("/:id", userController.DeleteUser)

	// Avatar upload is for the logged-in user, not admin scoped
	protected.Post("/profile/avatar", userController.UploadAvatar)

	// Children
	children := protected.Group("/children")
	children.Get("/mine", childController.GetMyChildren)
	children.Get("/", middleware.RequireStaff(), childController.GetChildren)
	children.Get("/:id", childController.GetChild)
	children.Post("/", middleware.RequireAdmin(), childController.CreateChild)
	children.Put("/:id", middleware.RequireAdmin(), childController.UpdateChild)
	children.Delete("/:id", middleware.RequireAdmin(), childController.DeleteChild)
	children.Post("/:id/photo", middleware.RequireStaff(), childController.UploadChildPhoto)

	// Academic periods
	periods := protected.Group("/periods")
	periods.Get("/", middleware.RequireStaff(), periodController.GetPeriods)
	periods.Get("/active", periodController.GetActivePeriod)
	periods.Post("/", middleware.RequireAdmin(), periodController.CreatePeriod)
	periods.Put("/:id", middleware.RequireAdmin(), periodController.UpdatePeriod)
	periods.Post("/:id/activate", middleware.RequireAdmin(), periodController.ActivatePeriod)
	periods.Delete("/:id", middleware.RequireAdmin(), periodController.DeletePeriod)

	// Class groups and branch assignments
	classGroups := protected.Group("/class-groups")
	classGroups.Get("/", middleware.RequireStaff(), assignmentController.GetClassGroups)
	classGroups.Post("/", middleware.RequireAdmin(), assignmentController.CreateClassGroup)
	classGroups.Put("/:id", middleware.RequireAdmin(), assignmentController.UpdateClassGroup)
	classGroups.Delete("/:id", middleware.RequireAdmin(), assignmentController.DeleteClassGroup)

	assignments := protected.Group("/assignments")
	assignments.Get("/", middleware.RequireStaff(), assignmentController.GetBranchAssignments)
	assignments.Post("/", middleware.RequireAdmin(), assignmentController.CreateBranchAssignment)
	assignments.Delete("/:id", middleware.RequireAdmin(), assignmentController.DeleteBranchAssignment)

	// Periodic reports. Role checks beyond these groups happen inside the
	// report service against the database.
	reports := protected.Group("/reports")
	reports.Get("/", middleware.RequireStaff(), reportController.GetReports)
	reports.Get("/export", middleware.RequireAdmin(), reportController.ExportReports)
	reports.Post("/", middleware.RequireClassTeacher(), reportController.CreateReport)
	reports.Get("/:id", reportController.GetReport)
	reports.Put("/:id/montessori", middleware.RequireClassTeacher(), reportController.SaveMontessoriSection)
	reports.Put("/:id/sections/:course", middleware.RequireTeacher(), reportController.SaveBranchSection)
	reports.Put("/:id/guidance", middleware.RequireRole(models.RoleGuidance), reportController.SaveGuidanceSection)
	reports.Post("/:id/approve", middleware.RequireAdmin(), reportController.ApproveReport)
	reports.Post("/:id/revoke", middleware.RequireAdmin(), reportController.RevokeApproval)
	reports.Post("/bulk-approve", middleware.RequireAdmin(), reportController.BulkApproveReports)
	reports.Delete("/:id", middleware.RequireClassTeacher(), reportController.DeleteReport)

	protected.Get("/children/:childId/reports", reportController.GetChildReports)

	// Shop
	products := protected.Group("/products", middleware.RequireAdmin())
	products.Post("/", productController.CreateProduct)
	products.Put("/:id", productController.UpdateProduct)
	products.Delete("/:id", productController.DeleteProduct)
	products.Post("/:id/image", productController.UploadProductImage)

	cart := protected.Group("/cart")
	cart.Get("/", cartController.GetCart)
	cart.Post("/", cartController.AddToCart)
	cart.Put("/:id", cartController.UpdateCartItem)
	cart.Delete("/clear", cartController.ClearCart)
	cart.Delete("/:id", cartController.RemoveCartItem)

	orders := protected.Group("/orders")
	orders.Post("/checkout", orderController.Checkout)
	orders.Get("/mine", orderController.GetMyOrders)
	orders.Get("/", middleware.RequireAdmin(), orderController.GetOrders)
	orders.Get("/:id", orderController.GetOrder)
	orders.Put("/:id/status", middleware.RequireAdmin(), orderController.UpdateOrderStatus)

	// Fleet
	vehicles := protected.Group("/vehicles")
	vehicles.Get("/", middleware.RequireStaff(), vehicleController.GetVehicles)
	vehicles.Post("/", middleware.RequireAdmin(), vehicleController.CreateVehicle)
	vehicles.Put("/:id", middleware.RequireAdmin(), vehicleController.UpdateVehicle)
	vehicles.Delete("/:id", middleware.RequireAdmin(), vehicleController.DeleteVehicle)
	vehicles.Post("/:id/location", middleware.RequireStaff(), vehicleController.ReportLocation)
	vehicles.Get("/:id/location", vehicleController.GetLocation)

	routes := protected.Group("/routes")
	routes.Get("/", vehicleController.GetRoutes)
	routes.Post("/", middleware.RequireAdmin(), vehicleController.CreateRoute)
	routes.Put("/:id", middleware.RequireAdmin(), vehicleController.UpdateRoute)
	routes.Delete("/:id", middleware.RequireAdmin(), vehicleController.DeleteRoute)

	serviceLogs := protected.Group("/service-logs", middleware.RequireStaff())
	serviceLogs.Get("/", vehicleController.GetServiceLogs)
	serviceLogs.Post("/", vehicleController.CreateServiceLog)

	// Content management (admin only)
	content := protected.Group("/content", middleware.RequireAdmin())
	content.Post("/about", contentController.CreateAboutSection)
	content.Put("/about/:id", contentController.UpdateAboutSection)
	content.Delete("/about/:id", contentController.DeleteAboutSection)
	content.Post("/about/:id/image", contentController.UploadSectionImage)
	content.Get("/instagram", contentController.GetInstagramSettings)
	content.Put("/instagram/token", contentController.UpdateInstagramToken)
	content.Post("/instagram/test", contentController.TestInstagramToken)
	content.Post("/instagram/refresh", contentController.RefreshInstagramFeed)

	// Notifications
	notifications := protected.Group("/notifications")
	notifications.Get("/", notificationController.GetNotifications)
	notifications.Put("/read-all", notificationController.MarkAllRead)
	notifications.Put("/:id/read", notificationController.MarkRead)
	notifications.Post("/broadcast", middleware.RequireAdmin(), notificationController.Broadcast)

	// Activity logs (admin only)
	logs := protected.Group("/logs", middleware.RequireAdmin())
	logs.Get("/", logController.GetLogs)
	logs.Post("/flush", logController.FlushCachedLogs)
	logs.Get("/archives", logController.GetArchives)
	logs.Get("/archives/:id/download", logController.DownloadArchive)

	// WebSocket stats
	ws := protected.Group("/ws")
	ws.Get("/stats", middleware.RequireAdmin(), wsController.GetWebSocketStats)

	// WebSocket connection endpoint - use websocket upgrade middleware
	app.Use("/ws", func(c *fiber.Ctx) error {
		if fiberws.IsWebSocketUpgrade(c) {
			c.Locals("allowed", true)
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws", wsController.WebSocketHandler())
}
