package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	apimw "github.com/optkit/optkit/internal/api/middleware"
	"github.com/optkit/optkit/internal/domain"
	"github.com/optkit/optkit/internal/service"
)

// SubscriberHandler handles the opt-in/opt-out endpoints and the admin list
// surface.
type SubscriberHandler struct {
	svc    *service.SubscriptionService
	logger *zap.Logger
}

func NewSubscriberHandler(svc *service.SubscriptionService, logger *zap.Logger) *SubscriberHandler {
	return &SubscriberHandler{svc: svc, logger: logger}
}

type emailRequest struct {
	Email string `json:"email"`
}

// OptIn handles POST /api/v1/subscribers/opt-in
//
// @Summary  Subscribe an email address
// @Tags     subscribers
// @Accept   json
// @Produce  json
// @Param    body  body      emailRequest  true  "Address to subscribe"
// @Success  201   {object}  domain.Subscriber
// @Failure  409   {object}  map[string]string
// @Failure  422   {object}  map[string]string
// @Router   /api/v1/subscribers/opt-in [post]
func (h *SubscriberHandler) OptIn(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	sub, err := h.svc.OptIn(r.Context(), req.Email)
	if err != nil {
		h.logger.Warn("opt-in failed",
			zap.String("correlation_id", apimw.GetCorrelationID(r.Context())),
			zap.Error(err),
		)
		mapError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, sub)
}

// OptOut handles POST /api/v1/subscribers/opt-out
//
// @Summary  Unsubscribe an email address
// @Tags     subscribers
// @Accept   json
// @Produce  json
// @Param    body  body      emailRequest  true  "Address to unsubscribe"
// @Success  200   {object}  domain.Subscriber
// @Failure  422   {object}  map[string]string
// @Router   /api/v1/subscribers/opt-out [post]
func (h *SubscriberHandler) OptOut(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	sub, err := h.svc.OptOut(r.Context(), req.Email)
	if err != nil {
		mapError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, sub)
}

// List handles GET /api/v1/subscribers
//
// @Summary  List subscribers with filtering and pagination
// @Tags     subscribers
// @Produce  json
// @Param    page    query     int     false  "Page number (default 1)"
// @Param    limit   query     int     false  "Items per page (default 100, max 100)"
// @Param    status  query     string  false  "Filter by status (active | unsubscribed)"
// @Param    search  query     string  false  "Substring match on email"
// @Param    sort    query     string  false  "Sort key (created | updated | email)"
// @Param    order   query     string  false  "Sort order (asc | desc)"
// @Success  200     {object}  domain.SubscriberPage
// @Router   /api/v1/subscribers [get]
func (h *SubscriberHandler) List(w http.ResponseWriter, r *http.Request) {
	page, err := h.svc.List(r.Context(), parseListQuery(r))
	if err != nil {
		h.logger.Error("list subscribers failed",
			zap.String("correlation_id", apimw.GetCorrelationID(r.Context())),
			zap.Error(err),
		)
		respondError(w, http.StatusInternalServerError, "failed to list subscribers")
		return
	}
	respondJSON(w, http.StatusOK, page)
}

// Get handles GET /api/v1/subscribers/{email}
//
// @Summary  Get a subscriber by email
// @Tags     subscribers
// @Produce  json
// @Param    email  path      string  true  "Email address"
// @Success  200    {object}  domain.Subscriber
// @Failure  404    {object}  map[string]string
// @Router   /api/v1/subscribers/{email} [get]
func (h *SubscriberHandler) Get(w http.ResponseWriter, r *http.Request) {
	sub, err := h.svc.Get(r.Context(), chi.URLParam(r, "email"))
	if err != nil {
		mapError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, sub)
}

// Delete handles DELETE /api/v1/subscribers/{email}
//
// @Summary  Remove a subscriber record entirely
// @Tags     subscribers
// @Param    email  path  string  true  "Email address"
// @Success  204
// @Failure  404  {object}  map[string]string
// @Router   /api/v1/subscribers/{email} [delete]
func (h *SubscriberHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), chi.URLParam(r, "email")); err != nil {
		mapError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func parseListQuery(r *http.Request) domain.ListQuery {
	q := r.URL.Query()
	query := domain.ListQuery{
		Search: q.Get("search"),
		Sort:   domain.SortKey(q.Get("sort")),
		Order:  domain.SortOrder(q.Get("order")),
	}

	if p, err := strconv.Atoi(q.Get("page")); err == nil && p > 0 {
		query.Page = p
	}
	if l, err := strconv.Atoi(q.Get("limit")); err == nil && l > 0 {
		query.Limit = l
	}
	if s := q.Get("status"); s != "" {
		st := domain.SubscriberStatus(s)
		if st.IsValid() {
			query.Status = &st
		}
	}
	// Unknown sort/order values fall back to defaults in Normalize.
	return query
}
