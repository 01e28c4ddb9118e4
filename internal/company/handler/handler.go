// Package handler exposes company governance operations over HTTP. It stays
// thin: parse, delegate, translate.
package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"equitygate/internal/company/models"
	"equitygate/internal/company/service"
	"equitygate/internal/governance/tier"
	"equitygate/internal/transport/http/shared"
	id "equitygate/pkg/domain"
	dErrors "equitygate/pkg/domain-errors"
)

// Handler handles company endpoints.
type Handler struct {
	companies *service.Service
	logger    *slog.Logger
}

func New(companies *service.Service, logger *slog.Logger) *Handler {
	return &Handler{companies: companies, logger: logger}
}

// Register mounts the company routes. The caller supplies the authenticated
// router group.
func (h *Handler) Register(r chi.Router) {
	r.Post("/companies", h.handleCreate)
	r.Get("/companies", h.handleList)
	r.Get("/companies/{companyID}", h.handleGet)
	r.Patch("/companies/{companyID}", h.handleUpdateProfile)
	r.Get("/companies/{companyID}/promotion", h.handleCheckPromotion)
	r.Post("/companies/{companyID}/promote", h.handlePromote)
	r.Post("/companies/{companyID}/suspend", h.handleSuspend)
	r.Post("/companies/{companyID}/reinstate", h.handleReinstate)
	r.Post("/companies/{companyID}/buying", h.handleToggleBuying)
}

func (h *Handler) companyID(r *http.Request) (id.CompanyID, error) {
	return id.ParseCompanyID(chi.URLParam(r, "companyID"))
}

type createRequest struct {
	Name string `json:"name"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.WriteError(w, err)
		return
	}
	company, err := h.companies.Create(r.Context(), req.Name)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, toCompanyResponse(company))
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	companies, err := h.companies.List(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "list companies failed", "error", err)
		shared.WriteError(w, err)
		return
	}
	out := make([]companyResponse, 0, len(companies))
	for _, company := range companies {
		out = append(out, toCompanyResponse(company))
	}
	shared.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	companyID, err := h.companyID(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	company, err := h.companies.Get(r.Context(), companyID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toCompanyResponse(company))
}

func (h *Handler) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	companyID, err := h.companyID(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	var changes map[string]any
	if err := shared.DecodeJSON(r, &changes); err != nil {
		shared.WriteError(w, err)
		return
	}
	company, err := h.companies.UpdateProfile(r.Context(), companyID, changes)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toCompanyResponse(company))
}

func (h *Handler) handleCheckPromotion(w http.ResponseWriter, r *http.Request) {
	companyID, err := h.companyID(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	report, err := h.companies.CheckPromotion(r.Context(), companyID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, report)
}

type promoteRequest struct {
	Target string `json:"target"`
}

func (h *Handler) handlePromote(w http.ResponseWriter, r *http.Request) {
	companyID, err := h.companyID(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	var req promoteRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.WriteError(w, err)
		return
	}
	target, err := tier.Parse(req.Target)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	company, err := h.companies.Promote(r.Context(), companyID, target)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toCompanyResponse(company))
}

type suspendRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) handleSuspend(w http.ResponseWriter, r *http.Request) {
	companyID, err := h.companyID(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	var req suspendRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.WriteError(w, err)
		return
	}
	company, err := h.companies.Suspend(r.Context(), companyID, req.Reason)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toCompanyResponse(company))
}

func (h *Handler) handleReinstate(w http.ResponseWriter, r *http.Request) {
	companyID, err := h.companyID(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	company, err := h.companies.Reinstate(r.Context(), companyID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toCompanyResponse(company))
}

type toggleBuyingRequest struct {
	Enabled *bool `json:"enabled"`
}

func (h *Handler) handleToggleBuying(w http.ResponseWriter, r *http.Request) {
	companyID, err := h.companyID(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	var req toggleBuyingRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.WriteError(w, err)
		return
	}
	if req.Enabled == nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeValidation, "enabled is required"))
		return
	}
	company, err := h.companies.ToggleBuying(r.Context(), companyID, *req.Enabled)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toCompanyResponse(company))
}

type companyResponse struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	LegalName      string `json:"legal_name,omitempty"`
	Description    string `json:"description,omitempty"`
	Website        string `json:"website,omitempty"`
	Sector         string `json:"sector,omitempty"`
	Country        string `json:"country,omitempty"`
	FoundedYear    int    `json:"founded_year,omitempty"`
	LogoURL        string `json:"logo_url,omitempty"`
	LifecycleState string `json:"lifecycle_state"`
	Tier           string `json:"tier"`
	BuyingEnabled  bool   `json:"buying_enabled"`
	Suspended      bool   `json:"suspended"`
}

func toCompanyResponse(c *models.Company) companyResponse {
	return companyResponse{
		ID:             c.ID.String(),
		Name:           c.Name,
		LegalName:      c.LegalName,
		Description:    c.Description,
		Website:        c.Website,
		Sector:         c.Sector,
		Country:        c.Country,
		FoundedYear:    c.FoundedYear,
		LogoURL:        c.LogoURL,
		LifecycleState: string(c.LifecycleState),
		Tier:           c.Tier.String(),
		BuyingEnabled:  c.BuyingEnabled,
		Suspended:      c.IsSuspended(),
	}
}
