package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

type RouterConfig struct {
	Sessions       *SessionHandler
	Directory      *DirectoryHandler
	RequestTimeout time.Duration
	Logger         *zap.Logger
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestIDMiddleware(cfg.Logger))
	r.Use(RequestLogger(cfg.Logger))
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	r.Use(middleware.Compress(5))
	r.Use(DeviceIDMiddleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/sessions", func(r chi.Router) {
			s := cfg.Sessions
			r.Post("/", s.Create)
			r.Route("/{session_id}", func(r chi.Router) {
				r.Get("/", s.Get)
				r.Post("/navigate", s.Navigate)
				r.Post("/back", s.Back)
				r.Post("/forward", s.Forward)
				r.Post("/search", s.Search)
				r.Post("/balance", s.RefreshBalance)
				r.Post("/business", s.SubmitBusiness)
				r.Put("/catalog", s.UpdateCatalog)
				r.Put("/cart/items/{product_id}", s.UpdateQuantity)
				r.Delete("/cart", s.ClearCart)
				r.Post("/cart/qr", s.CartQR)
				r.Post("/sales/qr", s.SaleQR)
				r.Post("/payment", s.StartPayment)
				r.Post("/payment/scan", s.Scan)
				r.Post("/payment/recipient", s.EnterRecipient)
				r.Post("/payment/submit", s.SubmitPayment)
				r.Post("/payment/cancel", s.CancelPayment)
				r.Post("/payment/done", s.PaymentDone)
				r.Post("/rate/{business_id}", s.Rate)
				r.Post("/view/{business_id}", s.ViewBusiness)
				r.Post("/reviews", s.SubmitReview)
				r.Post("/reviews/ack", s.AcknowledgeReview)
			})
		})

		r.Route("/businesses", func(r chi.Router) {
			d := cfg.Directory
			r.Get("/", d.ListBusinesses)
			r.Get("/rankings", d.Rankings)
			r.Get("/{business_id}", d.GetBusiness)
			r.Get("/{business_id}/catalog", d.Catalog)
		})
		r.Get("/reviews", cfg.Directory.ReviewsBy)
	})

	return otelhttp.NewHandler(r, "squeeze-http")
}
