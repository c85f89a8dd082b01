package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/lumichat/lumichat/app/controllers"
	"github.com/lumichat/lumichat/internal/pkg/middleware"
)

type ApiRouter struct {
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	api := app.Group("/api", limiter.New())

	// auth + session
	api.Post("/register", controllers.HandleRegister)
	api.Post("/login", controllers.HandleLogin)
	api.Post("/logout", middleware.RequireAuth, controllers.HandleLogout)
	api.Post("/session", controllers.HandleSession)

	// chat (quota-gated)
	api.Post("/chat-process", middleware.RequireAuth, controllers.HandleChatProcess)

	// billing
	api.Get("/products", controllers.HandleListProducts)
	api.Post("/orders", middleware.RequireAuth, controllers.HandleCreateOrder)
	api.Get("/orders", middleware.RequireAuth, controllers.HandleListOrders)
	api.Get("/user/quota", middleware.RequireAuth, controllers.HandleUserQuota)
	api.Get("/user/referrals", middleware.RequireAuth, controllers.HandleUserReferrals)

	// gateway callbacks; the notify endpoint must stay outside any auth
	// or rate limiting so retries always reach the engine
	app.Get("/api/payment/notify", controllers.HandlePaymentNotify)
	app.Post("/api/payment/notify", controllers.HandlePaymentNotify)
	app.Get("/api/payment/return", controllers.HandlePaymentReturn)
}

func NewApiRouter() *ApiRouter {
	return &ApiRouter{}
}
