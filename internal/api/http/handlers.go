package http

import (
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httplog/v2"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	"tinylink/internal/database"
	"tinylink/internal/models"
	"tinylink/internal/service"
	"tinylink/pkg/response"
)

func handlePing(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "pong")
}

func handleHome(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, homePage)
}

type shortenRequest struct {
	URL         string     `json:"url" validate:"required,url"`
	CustomAlias string     `json:"custom_alias,omitempty" validate:"omitempty,min=3,max=50"`
	Title       string     `json:"title,omitempty" validate:"omitempty,max=255"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
}

type updateLinkRequest struct {
	URL         *string    `json:"url,omitempty" validate:"omitempty,url"`
	Title       *string    `json:"title,omitempty" validate:"omitempty,max=255"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	ClearExpiry bool       `json:"clear_expiry,omitempty"`
}

type linkResponse struct {
	ID           int64      `json:"id"`
	ShortCode    string     `json:"short_code"`
	ShortURL     string     `json:"short_url"`
	URL          string     `json:"url"`
	Title        string     `json:"title,omitempty"`
	IsAlias      bool       `json:"is_alias,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
}

// linkStatsResponse always carries the counter fields, even at zero, so
// consumers can rely on their presence.
type linkStatsResponse struct {
	linkResponse
	ClickCount   int64      `json:"click_count"`
	LastAccessed *time.Time `json:"last_accessed"`
}

func toLinkResponse(svc LinkService, link *models.Link) linkResponse {
	return linkResponse{
		ID:        link.ID,
		ShortCode: link.ShortCode,
		ShortURL:  svc.ShortURL(link.ShortCode),
		URL:       link.OriginalURL,
		Title:     link.Title,
		IsAlias:   link.IsAlias,
		CreatedAt: link.CreatedAt,
		UpdatedAt: link.UpdatedAt,
		ExpiresAt: link.ExpiresAt,
	}
}

func toLinkStatsResponse(svc LinkService, link *models.Link) linkStatsResponse {
	return linkStatsResponse{
		linkResponse: toLinkResponse(svc, link),
		ClickCount:   link.ClickCount,
		LastAccessed: link.LastAccessed,
	}
}

func hitInfoFromRequest(r *http.Request) service.HitInfo {
	ip := r.RemoteAddr
	if host, _, err := net.SplitHostPort(ip); err == nil {
		ip = host
	}

	return service.HitInfo{
		UserAgent: r.UserAgent(),
		Referrer:  r.Referer(),
		IPAddress: ip,
	}
}

func handleShortenURL(svc LinkService, validate *validator.Validate) http.HandlerFunc {
	const op = "api.http.handleShortenURL"
	const successMsg = "The URL has been shortened successfully."

	return func(w http.ResponseWriter, r *http.Request) {
		var req shortenRequest

		if err := render.DecodeJSON(r.Body, &req); err != nil {
			if errors.Is(err, io.EOF) {
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, response.EmptyRequestBodyResponse)
				return
			}

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.BadRequestResponse)
			return
		}

		if err := validate.Struct(req); err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.ValidationErrorResponse(err))
			return
		}

		params := service.ShortenParams{
			OriginalURL: req.URL,
			CustomAlias: req.CustomAlias,
			Title:       req.Title,
			ExpiresAt:   req.ExpiresAt,
		}
		if userID, ok := userIDFromContext(r.Context()); ok {
			params.UserID = &userID
		}

		link, err := svc.ShortenURL(r.Context(), params)
		if err != nil {
			switch {
			case errors.Is(err, service.ErrInvalidAlias), errors.Is(err, service.ErrReservedAlias):
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, response.ErrorResponse("Invalid Alias",
					"The custom alias must be 3-50 characters of letters, digits, '-' or '_', and must not collide with application routes."))
			case errors.Is(err, service.ErrAliasTaken):
				render.Status(r, http.StatusConflict)
				render.JSON(w, r, response.ErrorResponse("Alias Taken",
					"The custom alias is already in use. Choose another one."))
			case errors.Is(err, service.ErrLinkLimitReached):
				render.Status(r, http.StatusForbidden)
				render.JSON(w, r, response.ErrorResponse("Link Limit Reached",
					"Your account has reached its link limit. Delete a link or upgrade your plan."))
			default:
				httplog.LogEntrySetFields(r.Context(), map[string]any{"op": op, "err": err})

				render.Status(r, http.StatusInternalServerError)
				render.JSON(w, r, response.ServerErrorResponse)
			}
			return
		}

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, response.SuccessResponse(successMsg, toLinkResponse(svc, link)))
	}
}

func handleResolveShortCode(svc LinkService) http.HandlerFunc {
	const op = "api.http.handleResolveShortCode"
	const successMsg = "The short code was successfully resolved."

	return func(w http.ResponseWriter, r *http.Request) {
		shortCode := chi.URLParam(r, "shortCode")

		link, err := svc.ResolveShortCode(r.Context(), shortCode, hitInfoFromRequest(r))
		if err != nil {
			switch {
			case errors.Is(err, database.ErrLinkNotFound):
				render.Status(r, http.StatusNotFound)
				render.JSON(w, r, response.ResourceNotFoundResponse)
			case errors.Is(err, service.ErrLinkExpired):
				render.Status(r, http.StatusGone)
				render.JSON(w, r, response.ErrorResponse("Link Expired",
					"The requested link has expired."))
			default:
				httplog.LogEntrySetFields(r.Context(), map[string]any{"op": op, "err": err})

				render.Status(r, http.StatusInternalServerError)
				render.JSON(w, r, response.ServerErrorResponse)
			}
			return
		}

		render.Status(r, http.StatusOK)
		render.JSON(w, r, response.SuccessResponse(successMsg, toLinkResponse(svc, link)))
	}
}

func handleRedirect(svc LinkService) http.HandlerFunc {
	const op = "api.http.handleRedirect"

	return func(w http.ResponseWriter, r *http.Request) {
		shortCode := chi.URLParam(r, "shortCode")

		// Residual slashes and query separators from manually edited URLs.
		shortCode = strings.TrimSuffix(shortCode, "/")
		if i := strings.IndexByte(shortCode, '?'); i != -1 {
			shortCode = shortCode[:i]
		}

		if shortCode == "" {
			http.Redirect(w, r, "/", http.StatusFound)
			return
		}

		link, err := svc.ResolveShortCode(r.Context(), shortCode, hitInfoFromRequest(r))
		if err != nil {
			switch {
			case errors.Is(err, database.ErrLinkNotFound):
				w.Header().Set("Content-Type", "text/html; charset=utf-8")
				w.WriteHeader(http.StatusNotFound)
				fmt.Fprint(w, notFoundPage)
			case errors.Is(err, service.ErrLinkExpired):
				w.Header().Set("Content-Type", "text/html; charset=utf-8")
				w.WriteHeader(http.StatusGone)
				fmt.Fprint(w, expiredPage)
			default:
				httplog.LogEntrySetFields(r.Context(), map[string]any{"op": op, "err": err})

				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			}
			return
		}

		http.Redirect(w, r, link.OriginalURL, http.StatusFound)
	}
}

type userResponse struct {
	ID         int64     `json:"id"`
	Email      string    `json:"email"`
	Username   string    `json:"username"`
	Tier       string    `json:"tier"`
	LinksLimit int64     `json:"links_limit"`
	CreatedAt  time.Time `json:"created_at"`
}

func toUserResponse(user *models.User) userResponse {
	return userResponse{
		ID:         user.ID,
		Email:      user.Email,
		Username:   user.Username,
		Tier:       user.Tier,
		LinksLimit: user.LinksLimit,
		CreatedAt:  user.CreatedAt,
	}
}

type registerRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Username string `json:"username" validate:"required,min=3,max=100"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

func handleRegister(svc AuthService, validate *validator.Validate) http.HandlerFunc {
	const op = "api.http.handleRegister"
	const successMsg = "The account has been registered successfully."

	return func(w http.ResponseWriter, r *http.Request) {
		var req registerRequest

		if err := render.DecodeJSON(r.Body, &req); err != nil {
			if errors.Is(err, io.EOF) {
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, response.EmptyRequestBodyResponse)
				return
			}

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.BadRequestResponse)
			return
		}

		if err := validate.Struct(req); err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.ValidationErrorResponse(err))
			return
		}

		user, err := svc.Register(r.Context(), req.Email, req.Username, req.Password)
		if err != nil {
			switch {
			case errors.Is(err, database.ErrEmailTaken):
				render.Status(r, http.StatusConflict)
				render.JSON(w, r, response.ErrorResponse("Email Taken",
					"An account with this email already exists."))
			case errors.Is(err, database.ErrUsernameTaken):
				render.Status(r, http.StatusConflict)
				render.JSON(w, r, response.ErrorResponse("Username Taken",
					"An account with this username already exists."))
			default:
				httplog.LogEntrySetFields(r.Context(), map[string]any{"op": op, "err": err})

				render.Status(r, http.StatusInternalServerError)
				render.JSON(w, r, response.ServerErrorResponse)
			}
			return
		}

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, response.SuccessResponse(successMsg, toUserResponse(user)))
	}
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type loginResponse struct {
	Token string       `json:"token"`
	User  userResponse `json:"user"`
}

func handleLogin(svc AuthService, validate *validator.Validate) http.HandlerFunc {
	const op = "api.http.handleLogin"
	const successMsg = "Logged in successfully."

	return func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest

		if err := render.DecodeJSON(r.Body, &req); err != nil {
			if errors.Is(err, io.EOF) {
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, response.EmptyRequestBodyResponse)
				return
			}

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.BadRequestResponse)
			return
		}

		if err := validate.Struct(req); err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.ValidationErrorResponse(err))
			return
		}

		token, user, err := svc.Login(r.Context(), req.Email, req.Password)
		if err != nil {
			if errors.Is(err, service.ErrInvalidCredentials) {
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, response.ErrorResponse("Invalid Credentials",
					"The email or password is incorrect."))
				return
			}

			httplog.LogEntrySetFields(r.Context(), map[string]any{"op": op, "err": err})

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.ServerErrorResponse)
			return
		}

		render.Status(r, http.StatusOK)
		render.JSON(w, r, response.SuccessResponse(successMsg, loginResponse{
			Token: token,
			User:  toUserResponse(user),
		}))
	}
}

func handleListUserLinks(svc LinkService) http.HandlerFunc {
	const op = "api.http.handleListUserLinks"
	const successMsg = "The links were retrieved successfully."

	return func(w http.ResponseWriter, r *http.Request) {
		userID, _ := userIDFromContext(r.Context())

		links, err := svc.ListUserLinks(r.Context(), userID)
		if err != nil {
			httplog.LogEntrySetFields(r.Context(), map[string]any{"op": op, "err": err})

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.ServerErrorResponse)
			return
		}

		data := make([]linkStatsResponse, 0, len(links))
		for _, link := range links {
			data = append(data, toLinkStatsResponse(svc, link))
		}

		render.Status(r, http.StatusOK)
		render.JSON(w, r, response.SuccessResponse(successMsg, data))
	}
}

func handleGetLinkStats(svc LinkService) http.HandlerFunc {
	const op = "api.http.handleGetLinkStats"
	const successMsg = "The link statistics were retrieved successfully."

	return func(w http.ResponseWriter, r *http.Request) {
		userID, _ := userIDFromContext(r.Context())
		shortCode := chi.URLParam(r, "shortCode")

		link, err := svc.GetLinkStats(r.Context(), shortCode, userID)
		if err != nil {
			if errors.Is(err, database.ErrLinkNotFound) {
				render.Status(r, http.StatusNotFound)
				render.JSON(w, r, response.ResourceNotFoundResponse)
				return
			}

			httplog.LogEntrySetFields(r.Context(), map[string]any{"op": op, "err": err})

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.ServerErrorResponse)
			return
		}

		render.Status(r, http.StatusOK)
		render.JSON(w, r, response.SuccessResponse(successMsg, toLinkStatsResponse(svc, link)))
	}
}

type countRowResponse struct {
	Label string `json:"label"`
	Count int64  `json:"count"`
}

type dailyStatResponse struct {
	Date  string `json:"date"`
	Count int64  `json:"count"`
}

type analyticsResponse struct {
	TotalClicks  int64               `json:"total_clicks"`
	CreatedAt    time.Time           `json:"created_at"`
	LastAccessed *time.Time          `json:"last_accessed,omitempty"`
	ByDevice     []countRowResponse  `json:"by_device"`
	TopReferrers []countRowResponse  `json:"top_referrers"`
	Daily        []dailyStatResponse `json:"daily"`
}

func toAnalyticsResponse(analytics *models.LinkAnalytics) analyticsResponse {
	resp := analyticsResponse{
		TotalClicks:  analytics.TotalClicks,
		CreatedAt:    analytics.CreatedAt,
		LastAccessed: analytics.LastAccessed,
		ByDevice:     make([]countRowResponse, 0, len(analytics.ByDevice)),
		TopReferrers: make([]countRowResponse, 0, len(analytics.TopReferrers)),
		Daily:        make([]dailyStatResponse, 0, len(analytics.Daily)),
	}

	for _, row := range analytics.ByDevice {
		resp.ByDevice = append(resp.ByDevice, countRowResponse(row))
	}
	for _, row := range analytics.TopReferrers {
		resp.TopReferrers = append(resp.TopReferrers, countRowResponse(row))
	}
	for _, stat := range analytics.Daily {
		resp.Daily = append(resp.Daily, dailyStatResponse{
			Date:  stat.Date.Format("2006-01-02"),
			Count: stat.Count,
		})
	}

	return resp
}

func handleGetLinkAnalytics(svc LinkService) http.HandlerFunc {
	const op = "api.http.handleGetLinkAnalytics"
	const successMsg = "The link analytics were retrieved successfully."

	return func(w http.ResponseWriter, r *http.Request) {
		userID, _ := userIDFromContext(r.Context())
		shortCode := chi.URLParam(r, "shortCode")

		analytics, err := svc.GetLinkAnalytics(r.Context(), shortCode, userID)
		if err != nil {
			if errors.Is(err, database.ErrLinkNotFound) {
				render.Status(r, http.StatusNotFound)
				render.JSON(w, r, response.ResourceNotFoundResponse)
				return
			}

			httplog.LogEntrySetFields(r.Context(), map[string]any{"op": op, "err": err})

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.ServerErrorResponse)
			return
		}

		render.Status(r, http.StatusOK)
		render.JSON(w, r, response.SuccessResponse(successMsg, toAnalyticsResponse(analytics)))
	}
}

func handleModifyLink(svc LinkService, validate *validator.Validate) http.HandlerFunc {
	const op = "api.http.handleModifyLink"
	const successMsg = "The link was successfully modified."

	return func(w http.ResponseWriter, r *http.Request) {
		var req updateLinkRequest

		if err := render.DecodeJSON(r.Body, &req); err != nil {
			if errors.Is(err, io.EOF) {
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, response.EmptyRequestBodyResponse)
				return
			}

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.BadRequestResponse)
			return
		}

		if err := validate.Struct(req); err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.ValidationErrorResponse(err))
			return
		}

		userID, _ := userIDFromContext(r.Context())
		shortCode := chi.URLParam(r, "shortCode")

		link, err := svc.ModifyLink(r.Context(), shortCode, userID, database.UpdateLinkParams{
			OriginalURL: req.URL,
			Title:       req.Title,
			ExpiresAt:   req.ExpiresAt,
			ClearExpiry: req.ClearExpiry,
		})
		if err != nil {
			if errors.Is(err, database.ErrLinkNotFound) {
				render.Status(r, http.StatusNotFound)
				render.JSON(w, r, response.ResourceNotFoundResponse)
				return
			}

			httplog.LogEntrySetFields(r.Context(), map[string]any{"op": op, "err": err})

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.ServerErrorResponse)
			return
		}

		render.Status(r, http.StatusOK)
		render.JSON(w, r, response.SuccessResponse(successMsg, toLinkStatsResponse(svc, link)))
	}
}

func handleDeleteLink(svc LinkService) http.HandlerFunc {
	const op = "api.http.handleDeleteLink"
	const successMsg = "The link was successfully deleted."

	return func(w http.ResponseWriter, r *http.Request) {
		userID, _ := userIDFromContext(r.Context())
		shortCode := chi.URLParam(r, "shortCode")

		if err := svc.DeleteLink(r.Context(), shortCode, userID); err != nil {
			if errors.Is(err, database.ErrLinkNotFound) {
				render.Status(r, http.StatusNotFound)
				render.JSON(w, r, response.ResourceNotFoundResponse)
				return
			}

			httplog.LogEntrySetFields(r.Context(), map[string]any{"op": op, "err": err})

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.ServerErrorResponse)
			return
		}

		render.Status(r, http.StatusOK)
		render.JSON(w, r, response.SuccessResponse(successMsg))
	}
}

func handleQRCode(svc QRCodeService) http.HandlerFunc {
	const op = "api.http.handleQRCode"

	return func(w http.ResponseWriter, r *http.Request) {
		userID, _ := userIDFromContext(r.Context())
		shortCode := chi.URLParam(r, "shortCode")

		size, _ := strconv.Atoi(r.URL.Query().Get("size"))

		png, err := svc.Generate(r.Context(), shortCode, userID, size)
		if err != nil {
			if errors.Is(err, database.ErrLinkNotFound) {
				render.Status(r, http.StatusNotFound)
				render.JSON(w, r, response.ResourceNotFoundResponse)
				return
			}

			httplog.LogEntrySetFields(r.Context(), map[string]any{"op": op, "err": err})

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.ServerErrorResponse)
			return
		}

		w.Header().Set("Content-Type", "image/png")
		w.WriteHeader(http.StatusOK)
		w.Write(png)
	}
}
