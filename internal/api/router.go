package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/quantfolio/portfolio-performance-backend/internal/api/handlers"
	custommiddleware "github.com/quantfolio/portfolio-performance-backend/internal/api/middleware"
	"github.com/quantfolio/portfolio-performance-backend/internal/config"
	"github.com/quantfolio/portfolio-performance-backend/internal/service"
)

// NewRouter creates and configures the HTTP router
func NewRouter(
	systemService *service.SystemService,
	pricingService *service.PricingService,
	processingService *service.ProcessingService,
	performanceService *service.PerformanceService,
	resetService *service.ResetService,
	cfg *config.Config,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(custommiddleware.Logger)
	r.Use(middleware.Recoverer)

	// CORS middleware
	corsMiddleware := custommiddleware.NewCORS(cfg.CORS.AllowedOrigins)
	r.Use(corsMiddleware.Handler)

	// API routes
	r.Route("/api", func(r chi.Router) {
		// System namespace
		r.Route("/system", func(r chi.Router) {
			systemHandler := handlers.NewSystemHandler(systemService)
			r.Get("/health", systemHandler.Health)
			r.Get("/version", systemHandler.Version)
		})

		r.Route("/performance", func(r chi.Router) {
			performanceHandler := handlers.NewPerformanceHandler(performanceService)
			r.Get("/position/{portfolioID}/{assetID}", performanceHandler.PositionSeries)
			r.Get("/group/{groupID}", performanceHandler.GroupSeries)
			r.Get("/portfolio/{portfolioID}", performanceHandler.PortfolioSeries)
			r.Get("/portfolio/{portfolioID}/at", performanceHandler.PortfolioAt)
			r.Get("/aggregate/{userID}", performanceHandler.AggregateSeries)
			r.Get("/aggregate/{userID}/at", performanceHandler.AggregateAt)
			r.Get("/weights/{portfolioID}", performanceHandler.GroupWeights)
			r.Get("/status/{userID}", performanceHandler.Status)
		})

		// Mutating endpoints require the internal API key.
		r.Group(func(r chi.Router) {
			r.Use(custommiddleware.APIKeyMiddleware)

			pricingHandler := handlers.NewPricingHandler(pricingService)
			r.Post("/pricings/refresh", pricingHandler.Refresh)

			processingHandler := handlers.NewProcessingHandler(processingService)
			r.Post("/processing/run/{userID}", processingHandler.Run)

			resetHandler := handlers.NewResetHandler(resetService)
			r.Post("/reset/derived/{userID}", resetHandler.Derived)
			r.Post("/reset/pricing", resetHandler.Pricing)
		})
	})

	return r
}
