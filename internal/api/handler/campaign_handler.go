package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	apimw "github.com/optkit/optkit/internal/api/middleware"
	"github.com/optkit/optkit/internal/domain"
	"github.com/optkit/optkit/internal/service"
)

// CampaignHandler handles campaign dispatch and progress endpoints.
type CampaignHandler struct {
	svc    *service.CampaignService
	logger *zap.Logger
}

func NewCampaignHandler(svc *service.CampaignService, logger *zap.Logger) *CampaignHandler {
	return &CampaignHandler{svc: svc, logger: logger}
}

// Dispatch handles POST /api/v1/campaigns
//
// @Summary  Dispatch a campaign to all active subscribers
// @Tags     campaigns
// @Accept   json
// @Produce  json
// @Param    body  body      domain.CampaignInput  true  "Campaign content"
// @Success  202   {object}  domain.Campaign
// @Failure  422   {object}  map[string]string
// @Failure  503   {object}  map[string]string
// @Router   /api/v1/campaigns [post]
func (h *CampaignHandler) Dispatch(w http.ResponseWriter, r *http.Request) {
	var in domain.CampaignInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	c, err := h.svc.Dispatch(r.Context(), in)
	if err != nil {
		h.logger.Warn("campaign dispatch failed",
			zap.String("correlation_id", apimw.GetCorrelationID(r.Context())),
			zap.Error(err),
		)
		mapError(w, err)
		return
	}
	respondJSON(w, http.StatusAccepted, c)
}

// Get handles GET /api/v1/campaigns/{id}
//
// @Summary  Get campaign status and counters
// @Tags     campaigns
// @Produce  json
// @Param    id   path      string  true  "Campaign UUID"
// @Success  200  {object}  domain.Campaign
// @Failure  404  {object}  map[string]string
// @Router   /api/v1/campaigns/{id} [get]
func (h *CampaignHandler) Get(w http.ResponseWriter, r *http.Request) {
	c, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		mapError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, c)
}
