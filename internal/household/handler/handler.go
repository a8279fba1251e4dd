// Package handler exposes household member operations over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"hcm/internal/household/models"
	"hcm/internal/platform/metrics"
	"hcm/internal/platform/middleware"
	dErrors "hcm/pkg/domain-errors"
	"hcm/pkg/platform/httputil"
	"hcm/pkg/platform/middleware/admin"
	"hcm/pkg/platform/middleware/metadata"
	"hcm/pkg/platform/middleware/requesttime"
	"hcm/pkg/platform/sentinel"
	"hcm/pkg/requestcontext"
)

const (
	maxBodyBytes   = 10 << 20
	maxSearchLimit = 1000
)

// Service defines the household member operations.
type Service interface {
	Create(ctx context.Context, req models.BulkRequest, isBulk bool) (*models.BulkResult, error)
	Update(ctx context.Context, req models.BulkRequest, isBulk bool) (*models.BulkResult, error)
	Delete(ctx context.Context, req models.BulkRequest, isBulk bool) (*models.BulkResult, error)
	Search(ctx context.Context, req models.SearchRequest) (*models.SearchResult, error)
}

// HouseholdStore upserts the local household records members reference.
type HouseholdStore interface {
	Save(ctx context.Context, h models.Household) error
}

type bulkFunc func(ctx context.Context, req models.BulkRequest, isBulk bool) (*models.BulkResult, error)

// Handler handles household member endpoints.
type Handler struct {
	logger         *slog.Logger
	members        Service
	households     HouseholdStore
	metrics        *metrics.Metrics
	auth           func(http.Handler) http.Handler
	adminToken     string
	requestTimeout time.Duration
}

type Option func(*Handler)

func WithMetrics(m *metrics.Metrics) Option {
	return func(h *Handler) {
		h.metrics = m
	}
}

// WithAuth installs the authentication middleware for member routes.
func WithAuth(mw func(http.Handler) http.Handler) Option {
	return func(h *Handler) {
		h.auth = mw
	}
}

// WithHouseholdAdmin enables the operator route that upserts households.
func WithHouseholdAdmin(store HouseholdStore, token string) Option {
	return func(h *Handler) {
		h.households = store
		h.adminToken = token
	}
}

func WithRequestTimeout(d time.Duration) Option {
	return func(h *Handler) {
		if d > 0 {
			h.requestTimeout = d
		}
	}
}

// New creates a household member Handler.
func New(members Service, logger *slog.Logger, opts ...Option) *Handler {
	h := &Handler{
		logger:         logger,
		members:        members,
		requestTimeout: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register registers the household routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	router := chi.NewRouter()
	router.Use(chimw.Recoverer)
	router.Use(chimw.RequestID)
	router.Use(metadata.RequestID)
	router.Use(middleware.Logger(h.logger))
	router.Use(chimw.Timeout(h.requestTimeout))
	router.Use(middleware.ContentTypeJSON)
	router.Use(middleware.LatencyMiddleware(h.metrics))
	router.Use(requesttime.Middleware)

	router.Group(func(r chi.Router) {
		if h.auth != nil {
			r.Use(h.auth)
		}
		r.Post("/household/member/v1/_create", h.single(h.members.Create))
		r.Post("/household/member/v1/_update", h.single(h.members.Update))
		r.Post("/household/member/v1/_delete", h.single(h.members.Delete))
		r.Post("/household/member/v1/bulk/_create", h.bulk(h.members.Create))
		r.Post("/household/member/v1/bulk/_update", h.bulk(h.members.Update))
		r.Post("/household/member/v1/bulk/_delete", h.bulk(h.members.Delete))
		r.Post("/household/member/v1/_search", h.handleSearch)
	})

	if h.households != nil {
		router.With(admin.RequireAdminToken(h.adminToken, h.logger)).
			Post("/household/v1/_admin/upsert", h.handleUpsertHouseholds)
	}

	r.Mount("/", router)
}

// single serves a one-member operation. Any entity error fails the request.
func (h *Handler) single(op bulkFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		var req models.Request
		if !h.decode(w, r, &req) {
			return
		}
		req.RequestInfo.APIID = r.URL.Path

		res, err := op(ctx, req.Bulk(), false)
		if err != nil {
			h.writeError(ctx, w, err)
			return
		}
		if len(res.Members) == 0 {
			h.writeError(ctx, w, dErrors.New(dErrors.CodeInternal, "no member in result"))
			return
		}
		httputil.WriteJSON(w, http.StatusAccepted, models.Response{
			ResponseInfo:    responseInfo(ctx, req.RequestInfo, true),
			HouseholdMember: res.Members[0],
		})
	}
}

// bulk serves a many-member operation. Entity errors are reported in the
// body next to the members that were persisted.
func (h *Handler) bulk(op bulkFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		var req models.BulkRequest
		if !h.decode(w, r, &req) {
			return
		}
		req.RequestInfo.APIID = r.URL.Path

		res, err := op(ctx, req, true)
		if err != nil {
			h.writeError(ctx, w, err)
			return
		}
		httputil.WriteJSON(w, http.StatusAccepted, models.BulkResponse{
			ResponseInfo:     responseInfo(ctx, req.RequestInfo, len(res.Errors) == 0),
			HouseholdMembers: res.Members,
			Errors:           res.Errors,
		})
	}
}

func (h *Handler) handleSearch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req models.SearchRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := applySearchParams(r, &req); err != nil {
		h.writeError(ctx, w, err)
		return
	}

	res, err := h.members.Search(ctx, req)
	if err != nil {
		h.writeError(ctx, w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, models.SearchResponse{
		ResponseInfo:     responseInfo(ctx, req.RequestInfo, true),
		HouseholdMembers: res.Members,
		TotalCount:       res.TotalCount,
	})
}

func (h *Handler) handleUpsertHouseholds(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req models.HouseholdRequest
	if !h.decode(w, r, &req) {
		return
	}
	for _, hh := range req.Households {
		if hh.ID == "" || hh.TenantID == "" {
			h.writeError(ctx, w, dErrors.New(dErrors.CodeBadRequest, "household id and tenantId are required"))
			return
		}
	}
	for _, hh := range req.Households {
		if err := h.households.Save(ctx, hh); err != nil {
			h.writeError(ctx, w, dErrors.Wrap(err, codeForStore(err), "save household "+hh.ID))
			return
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

// applySearchParams reads the paging and scope query parameters.
func applySearchParams(r *http.Request, req *models.SearchRequest) error {
	q := r.URL.Query()
	req.TenantID = q.Get("tenantId")

	var err error
	if req.Limit, err = intParam(q.Get("limit"), "limit"); err != nil {
		return err
	}
	if req.Limit > maxSearchLimit {
		return dErrors.New(dErrors.CodeBadRequest, "limit must not exceed "+strconv.Itoa(maxSearchLimit))
	}
	if req.Offset, err = intParam(q.Get("offset"), "offset"); err != nil {
		return err
	}
	if v := q.Get("lastChangedSince"); v != "" {
		if req.LastChangedSince, err = strconv.ParseInt(v, 10, 64); err != nil {
			return dErrors.New(dErrors.CodeBadRequest, "lastChangedSince must be epoch milliseconds")
		}
	}
	if v := q.Get("includeDeleted"); v != "" {
		if req.IncludeDeleted, err = strconv.ParseBool(v); err != nil {
			return dErrors.New(dErrors.CodeBadRequest, "includeDeleted must be a boolean")
		}
	}
	return nil
}

func intParam(v, name string) (int, error) {
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, dErrors.New(dErrors.CodeBadRequest, name+" must be a non-negative integer")
	}
	return n, nil
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		ctx := r.Context()
		h.logger.WarnContext(ctx, "invalid household member request",
			"request_id", requestcontext.RequestID(ctx),
			"path", r.URL.Path,
			"error", err,
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return false
	}
	return true
}

func (h *Handler) writeError(ctx context.Context, w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	attrs := []any{
		"request_id", requestcontext.RequestID(ctx),
		"code", string(code),
		"error", err,
	}
	switch code {
	case dErrors.CodeInternal, dErrors.CodeUnavailable, dErrors.CodeTimeout:
		h.logger.ErrorContext(ctx, "household member request failed", attrs...)
	default:
		h.logger.WarnContext(ctx, "household member request rejected", attrs...)
	}
	httputil.WriteError(w, err)
}

func codeForStore(err error) dErrors.Code {
	if errors.Is(err, sentinel.ErrConflict) {
		return dErrors.CodeConflict
	}
	return dErrors.CodeInternal
}

func responseInfo(ctx context.Context, ri models.RequestInfo, success bool) models.ResponseInfo {
	return models.NewResponseInfo(ri, success, requestcontext.Now(ctx), requestcontext.RequestID(ctx))
}
