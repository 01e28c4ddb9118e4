// Package handler exposes the disclosure workflow over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"equitygate/internal/disclosure/models"
	"equitygate/internal/disclosure/service"
	"equitygate/internal/transport/http/shared"
	id "equitygate/pkg/domain"
	dErrors "equitygate/pkg/domain-errors"
)

// Handler handles disclosure endpoints.
type Handler struct {
	disclosures *service.Service
	logger      *slog.Logger
}

func New(disclosures *service.Service, logger *slog.Logger) *Handler {
	return &Handler{disclosures: disclosures, logger: logger}
}

// Register mounts the disclosure routes on the authenticated router group.
func (h *Handler) Register(r chi.Router) {
	r.Get("/companies/{companyID}/disclosures", h.handleListByCompany)
	r.Post("/companies/{companyID}/disclosures/{module}", h.handleSubmit)
	r.Get("/disclosures/{disclosureID}", h.handleGet)
	r.Get("/disclosures/{disclosureID}/versions", h.handleListVersions)
	r.Get("/disclosures/{disclosureID}/versions/{version}", h.handleGetVersion)
	r.Post("/disclosures/{disclosureID}/approve", h.handleApprove)
	r.Post("/disclosures/{disclosureID}/reject", h.handleReject)
	r.Post("/disclosures/{disclosureID}/clarification", h.handleRequestClarification)
	r.Post("/disclosures/{disclosureID}/respond", h.handleRespondClarification)
}

func (h *Handler) disclosureID(r *http.Request) (id.DisclosureID, error) {
	return id.ParseDisclosureID(chi.URLParam(r, "disclosureID"))
}

func (h *Handler) handleListByCompany(w http.ResponseWriter, r *http.Request) {
	companyID, err := id.ParseCompanyID(chi.URLParam(r, "companyID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	disclosures, err := h.disclosures.ListByCompany(r.Context(), companyID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	out := make([]disclosureResponse, 0, len(disclosures))
	for _, d := range disclosures {
		out = append(out, toDisclosureResponse(d))
	}
	shared.WriteJSON(w, http.StatusOK, out)
}

type submitRequest struct {
	Content map[string]any `json:"content"`
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	companyID, err := id.ParseCompanyID(chi.URLParam(r, "companyID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	module, err := models.ParseModuleCode(chi.URLParam(r, "module"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	var req submitRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.WriteError(w, err)
		return
	}
	d, err := h.disclosures.Submit(r.Context(), companyID, module, req.Content)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, toDisclosureResponse(d))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	disclosureID, err := h.disclosureID(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	d, err := h.disclosures.Get(r.Context(), disclosureID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toDisclosureResponse(d))
}

func (h *Handler) handleListVersions(w http.ResponseWriter, r *http.Request) {
	disclosureID, err := h.disclosureID(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	versions, err := h.disclosures.ListVersions(r.Context(), disclosureID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	out := make([]versionResponse, 0, len(versions))
	for _, v := range versions {
		out = append(out, toVersionResponse(v))
	}
	shared.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) handleGetVersion(w http.ResponseWriter, r *http.Request) {
	disclosureID, err := h.disclosureID(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	version, err := strconv.Atoi(chi.URLParam(r, "version"))
	if err != nil || version < 1 {
		shared.WriteError(w, dErrors.New(dErrors.CodeValidation, "version must be a positive integer"))
		return
	}
	v, err := h.disclosures.GetVersion(r.Context(), disclosureID, version)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toVersionResponse(v))
}

type reviewRequest struct {
	Note string `json:"note"`
}

func (h *Handler) handleApprove(w http.ResponseWriter, r *http.Request) {
	h.review(w, r, h.disclosures.Approve)
}

func (h *Handler) handleReject(w http.ResponseWriter, r *http.Request) {
	h.review(w, r, h.disclosures.Reject)
}

func (h *Handler) handleRequestClarification(w http.ResponseWriter, r *http.Request) {
	h.review(w, r, h.disclosures.RequestClarification)
}

func (h *Handler) review(w http.ResponseWriter, r *http.Request, verb func(ctx context.Context, disclosureID id.DisclosureID, note string) (*models.Disclosure, error)) {
	disclosureID, err := h.disclosureID(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	var req reviewRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.WriteError(w, err)
		return
	}
	d, err := verb(r.Context(), disclosureID, req.Note)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toDisclosureResponse(d))
}

type respondRequest struct {
	Content map[string]any `json:"content"`
}

func (h *Handler) handleRespondClarification(w http.ResponseWriter, r *http.Request) {
	disclosureID, err := h.disclosureID(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	var req respondRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.WriteError(w, err)
		return
	}
	d, err := h.disclosures.RespondClarification(r.Context(), disclosureID, req.Content)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toDisclosureResponse(d))
}

type disclosureResponse struct {
	ID             string `json:"id"`
	CompanyID      string `json:"company_id"`
	Module         string `json:"module"`
	Status         string `json:"status"`
	CurrentVersion int    `json:"current_version"`
	ReviewNote     string `json:"review_note,omitempty"`
}

func toDisclosureResponse(d *models.Disclosure) disclosureResponse {
	return disclosureResponse{
		ID:             d.ID.String(),
		CompanyID:      d.CompanyID.String(),
		Module:         string(d.Module),
		Status:         string(d.Status),
		CurrentVersion: d.CurrentVersion,
		ReviewNote:     d.ReviewNote,
	}
}

type versionResponse struct {
	ID           string         `json:"id"`
	DisclosureID string         `json:"disclosure_id"`
	Version      int            `json:"version"`
	Content      map[string]any `json:"content"`
	SubmittedBy  string         `json:"submitted_by"`
}

func toVersionResponse(v *models.Version) versionResponse {
	return versionResponse{
		ID:           v.ID.String(),
		DisclosureID: v.DisclosureID.String(),
		Version:      v.Version,
		Content:      v.Content,
		SubmittedBy:  v.SubmittedBy.String(),
	}
}
