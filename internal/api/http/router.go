// Package http provides the HTTP delivery layer for the link shortener.
// It contains the chi router, the JSON handlers, the redirect dispatcher
// and the auth and rate limiting middleware.
package http

import (
	"context"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v2"
	"github.com/go-playground/validator/v10"
	httpSwagger "github.com/swaggo/http-swagger"

	"tinylink/internal/config"
	"tinylink/internal/database"
	"tinylink/internal/models"
	"tinylink/internal/service"
)

type LinkService interface {
	ShortenURL(ctx context.Context, p service.ShortenParams) (*models.Link, error)
	ResolveShortCode(ctx context.Context, shortCode string, hit service.HitInfo) (*models.Link, error)
	GetLinkStats(ctx context.Context, shortCode string, userID int64) (*models.Link, error)
	GetLinkAnalytics(ctx context.Context, shortCode string, userID int64) (*models.LinkAnalytics, error)
	ListUserLinks(ctx context.Context, userID int64) ([]*models.Link, error)
	ModifyLink(ctx context.Context, shortCode string, userID int64, p database.UpdateLinkParams) (*models.Link, error)
	DeleteLink(ctx context.Context, shortCode string, userID int64) error
	ShortURL(shortCode string) string
}

type AuthService interface {
	Register(ctx context.Context, email, username, password string) (*models.User, error)
	Login(ctx context.Context, email, password string) (string, *models.User, error)
	VerifyToken(tokenString string) (int64, error)
}

type QRCodeService interface {
	Generate(ctx context.Context, shortCode string, userID int64, size int) ([]byte, error)
}

func getValidate() *validator.Validate {
	validate := validator.New()

	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return validate
}

func NewRouter(logger *httplog.Logger, linkSvc LinkService, authSvc AuthService,
	qrSvc QRCodeService, rl config.RateLimit) http.Handler {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*"},
		AllowedMethods:   []string{"POST", "GET", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Accept", "Authorization"},
		AllowCredentials: false,
		MaxAge:           84600,
	}))
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(httplog.RequestLogger(logger))
	r.Use(middleware.Recoverer)

	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/docs/swagger.yml"),
	))

	r.Get("/docs/swagger.yml", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, "./docs/swagger.yml")
	})

	r.Get("/", handleHome)

	// Redirects are the hot path and get their own, more generous bucket.
	r.Group(func(r chi.Router) {
		r.Use(newIPRateLimiter(rl.RedirectRPS, rl.RedirectBurst).limit)

		r.Get("/r", handleRedirect(linkSvc))
		r.Get("/r/{shortCode}", handleRedirect(linkSvc))
		r.Get("/{shortCode}", handleRedirect(linkSvc))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.AllowContentType("application/json"))
		r.Use(newIPRateLimiter(rl.RPS, rl.Burst).limit)

		validate := getValidate()

		r.Get("/ping", handlePing)

		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", handleRegister(authSvc, validate))
			r.Post("/login", handleLogin(authSvc, validate))
		})

		r.Route("/shorten", func(r chi.Router) {
			r.With(optionalAuth(authSvc)).Post("/", handleShortenURL(linkSvc, validate))

			r.Route("/{shortCode}", func(r chi.Router) {
				r.Get("/", handleResolveShortCode(linkSvc))

				r.Group(func(r chi.Router) {
					r.Use(requireAuth(authSvc))

					r.Put("/", handleModifyLink(linkSvc, validate))
					r.Delete("/", handleDeleteLink(linkSvc))
					r.Get("/stats", handleGetLinkStats(linkSvc))
					r.Get("/analytics", handleGetLinkAnalytics(linkSvc))
				})
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(requireAuth(authSvc))

			r.Get("/urls", handleListUserLinks(linkSvc))
			r.Get("/qrcode/{shortCode}", handleQRCode(qrSvc))
		})
	})

	return r
}
