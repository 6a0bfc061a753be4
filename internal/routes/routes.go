package routes

import (
	"time"

	"github.com/echotune/echotune-backend/internal/config"
	"github.com/echotune/echotune-backend/internal/handlers"
	"github.com/echotune/echotune-backend/internal/middleware"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"gorm.io/gorm"
)

func Setup(
	app *fiber.App,
	cfg *config.Config,
	db *gorm.DB,
	authHandler *handlers.AuthHandler,
	healthHandler *handlers.HealthHandler,
	checkoutHandler *handlers.CheckoutHandler,
	webhookHandler *handlers.WebhookHandler,
	catalogHandler *handlers.CatalogHandler,
	libraryHandler *handlers.LibraryHandler,
	ownerHandler *handlers.OwnerHandler,
	piracyHandler *handlers.PiracyHandler,
) {
	api := app.Group("/api")

	// General API rate limiter: 60 req/min per IP
	api.Use(limiter.New(limiter.Config{
		Max:               60,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	}))

	api.Get("/health", healthHandler.Check)

	// Accounts — public. Stricter rate limit: code issuance and login are
	// the abuse surface.
	accounts := api.Group("/accounts")
	accounts.Use(limiter.New(limiter.Config{
		Max:               10,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	}))
	accounts.Post("/register", authHandler.Register)
	accounts.Post("/verify", authHandler.VerifyOTC)
	accounts.Post("/resend-code", authHandler.ResendOTC)
	accounts.Post("/password-reset", authHandler.RequestPasswordReset)
	accounts.Post("/password-reset/confirm", authHandler.ResetPassword)
	accounts.Post("/login", authHandler.Login)
	accounts.Post("/owner-login", authHandler.OwnerLogin)
	accounts.Post("/google", authHandler.GoogleSignIn)

	// Account management (protected)
	api.Get("/accounts/me", middleware.JWTProtected(cfg), authHandler.GetMe)
	api.Get("/accounts/:id", middleware.JWTProtected(cfg), authHandler.GetAccount)
	api.Put("/accounts/:id", middleware.JWTProtected(cfg), authHandler.UpdateAccount)
	api.Delete("/accounts/:id", middleware.JWTProtected(cfg), authHandler.DeleteAccount)

	// Catalog — publishing is protected, browsing is public. Literal
	// segments registered before the :asset_type wildcards.
	api.Post("/catalog/songs", middleware.JWTProtected(cfg), catalogHandler.CreateSong)
	api.Post("/catalog/contents", middleware.JWTProtected(cfg), catalogHandler.CreateContent)
	api.Get("/catalog/:asset_type", catalogHandler.List)
	api.Get("/catalog/:asset_type/:asset_id", catalogHandler.Get)

	// Payments (protected)
	payments := api.Group("/payments", middleware.JWTProtected(cfg))
	payments.Post("/checkout", checkoutHandler.StartCheckout)
	payments.Post("/checkout/:id/confirm", checkoutHandler.ConfirmCheckout)
	payments.Get("/purchases/:id", checkoutHandler.GetPurchase)
	payments.Get("/access/:asset_type/:asset_id", checkoutHandler.CheckAccess)
	payments.Get("/download/:asset_type/:asset_id", checkoutHandler.Download)

	// Library (protected)
	users := api.Group("/users/:id", middleware.JWTProtected(cfg))
	users.Get("/favorites", libraryHandler.ListFavorites)
	users.Post("/favorites", libraryHandler.AddFavorite)
	users.Delete("/favorites/:asset_type/:asset_id", libraryHandler.RemoveFavorite)
	users.Get("/purchases", libraryHandler.ListPurchases)
	users.Get("/library", libraryHandler.Summary)

	// Owner dashboard (protected)
	owners := api.Group("/owners", middleware.JWTProtected(cfg))
	owners.Get("/me/sales", ownerHandler.ListSales)
	owners.Get("/me/earnings", ownerHandler.Earnings)
	owners.Get("/me/assets", ownerHandler.ListAssets)

	// Piracy complaints — user endpoints (protected)
	api.Post("/complaints", middleware.JWTProtected(cfg), piracyHandler.CreateComplaint)
	api.Get("/complaints/mine", middleware.JWTProtected(cfg), piracyHandler.ListMyComplaints)
	api.Get("/complaints/:id", middleware.JWTProtected(cfg), piracyHandler.GetComplaint)

	// Admin review panel (protected + admin required)
	admin := api.Group("/admin", middleware.JWTProtected(cfg), middleware.AdminRequired(db, cfg))
	admin.Get("/complaints", piracyHandler.ListComplaints)
	admin.Put("/complaints/:id", piracyHandler.ActionComplaint)

	// Webhooks — signature-verified, no JWT
	webhooks := api.Group("/webhooks")
	webhooks.Post("/stripe", webhookHandler.HandleStripe)
}
