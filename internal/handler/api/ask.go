package api

import (
	"context"
	"time"

	"github.com/labstack/echo/v4"

	"AgriPrice/internal/domain/models"
	domrepo "AgriPrice/internal/domain/repository"
	"AgriPrice/internal/services/dataset"
	xhttp "AgriPrice/pkg/http"
	"AgriPrice/pkg/http/middleware"
	xlogger "AgriPrice/pkg/logger"
)

// Asker is the question-answering use case.
type Asker interface {
	Ask(ctx context.Context, req *models.AskRequest) (*models.AskResponse, error)
	Dimensions() (models.Dimensions, error)
	Candidates(req *models.CandidatesRequest) ([]dataset.Candidate, error)
}

// Reloader swaps in a freshly loaded dataset.
type Reloader interface {
	Refresh(ctx context.Context, reason string) (*models.RefreshReport, error)
}

// AskHandler serves the JSON API under /api.
type AskHandler struct {
	logger     *xlogger.Logger
	asker      Asker
	reloader   Reloader
	broadcast  domrepo.RefreshPublisher // optional
	instance   string
	adminToken string
	limiter    middleware.Allower // optional
}

type AskHandlerOption func(*AskHandler)

// WithRefreshBroadcast publishes admin reloads so other instances follow.
func WithRefreshBroadcast(p domrepo.RefreshPublisher, instance string) AskHandlerOption {
	return func(h *AskHandler) {
		h.broadcast = p
		h.instance = instance
	}
}

// WithAdminToken enables POST /api/admin/reload for bearer token.
func WithAdminToken(token string) AskHandlerOption {
	return func(h *AskHandler) { h.adminToken = token }
}

func WithRateLimit(a middleware.Allower) AskHandlerOption {
	return func(h *AskHandler) { h.limiter = a }
}

func NewAskHandler(logger *xlogger.Logger, asker Asker, reloader Reloader, opts ...AskHandlerOption) *AskHandler {
	h := &AskHandler{logger: logger, asker: asker, reloader: reloader}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *AskHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	var mw []echo.MiddlewareFunc
	if h.limiter != nil {
		mw = append(mw, middleware.RateLimit(h.limiter, func(c echo.Context) error {
			return xhttp.AppErrorResponse(c, xhttp.TooManyRequestsError("too many questions, slow down"))
		}))
	}
	g.POST("/ask", h.Ask, mw...)
	g.GET("/dimensions", h.Dimensions)
	g.GET("/candidates", h.Candidates)
	if h.adminToken != "" {
		g.POST("/admin/reload", h.Reload)
	}
}

func (h *AskHandler) Ask(c echo.Context) error {
	req := &models.AskRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	res, err := h.asker.Ask(c.Request().Context(), req)
	if err != nil {
		return h.fail(c, err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *AskHandler) Dimensions(c echo.Context) error {
	dims, err := h.asker.Dimensions()
	if err != nil {
		return h.fail(c, err)
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=60")
	return xhttp.SuccessResponse(c, dims)
}

func (h *AskHandler) Candidates(c echo.Context) error {
	req := &models.CandidatesRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	out, err := h.asker.Candidates(req)
	if err != nil {
		return h.fail(c, err)
	}
	return xhttp.SuccessResponse(c, out)
}

func (h *AskHandler) Reload(c echo.Context) error {
	if !xhttp.TokenMatches(h.adminToken, xhttp.BearerToken(c)) {
		return xhttp.AppErrorResponse(c, xhttp.UnauthorizedError("admin token required"))
	}
	req := &models.ReloadRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	rep, err := h.reloader.Refresh(c.Request().Context(), "admin:"+req.Reason)
	if err != nil {
		return h.fail(c, err)
	}
	if h.broadcast != nil {
		ev := &models.RefreshEvent{Reason: req.Reason, Origin: h.instance, RequestedAt: time.Now().UTC()}
		if err := h.broadcast.PublishRefresh(c.Request().Context(), ev); err != nil {
			h.logger.Warn("refresh broadcast failed", xlogger.Error(err))
		}
	}
	return xhttp.SuccessResponse(c, rep)
}

func (h *AskHandler) fail(c echo.Context, err error) error {
	appErr := ToAppError(err)
	if appErr.Status >= 500 {
		h.logger.Error("request failed", xlogger.String("route", c.Path()), xlogger.Error(err))
	}
	return xhttp.AppErrorResponse(c, appErr)
}
