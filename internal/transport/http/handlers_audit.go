package httptransport

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"equitygate/internal/transport/http/shared"
	dErrors "equitygate/pkg/domain-errors"
	audit "equitygate/pkg/platform/audit"
	"equitygate/pkg/platform/audit/publisher"
	"equitygate/pkg/requestcontext"
)

// AuditHandler serves the per-entity audit history to platform admins. Each
// export is itself recorded.
type AuditHandler struct {
	store     audit.Store
	publisher *publisher.Publisher
	logger    *slog.Logger
}

func NewAuditHandler(store audit.Store, pub *publisher.Publisher, logger *slog.Logger) *AuditHandler {
	return &AuditHandler{store: store, publisher: pub, logger: logger}
}

func (h *AuditHandler) Register(r chi.Router) {
	r.Get("/audit/{entityKind}/{entityID}", h.handleExport)
}

func (h *AuditHandler) handleExport(w http.ResponseWriter, r *http.Request) {
	principal, ok := requestcontext.Principal(r.Context())
	if !ok || !principal.IsAdmin() {
		shared.WriteError(w, dErrors.New(dErrors.CodeAuthorizationDenied, "audit export requires admin authority"))
		return
	}

	entityKind := chi.URLParam(r, "entityKind")
	entityID := chi.URLParam(r, "entityID")

	events, err := h.store.ListByEntity(r.Context(), entityKind, entityID)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "audit export failed", "error", err)
		shared.WriteError(w, err)
		return
	}

	// Exports are compliance events in their own right.
	if err := h.publisher.Emit(r.Context(), audit.Event{
		Action:     string(audit.ActionAuditExported),
		ActorType:  "admin",
		ActorID:    principal.UserID.String(),
		EntityKind: entityKind,
		EntityID:   entityID,
		Payload:    map[string]any{"event_count": len(events)},
	}); err != nil {
		shared.WriteError(w, err)
		return
	}

	out := make([]auditEventResponse, 0, len(events))
	for _, e := range events {
		out = append(out, toAuditEventResponse(e))
	}
	shared.WriteJSON(w, http.StatusOK, out)
}

type auditEventResponse struct {
	Category   string         `json:"category"`
	Severity   string         `json:"severity"`
	Timestamp  string         `json:"timestamp"`
	Action     string         `json:"action"`
	ActorType  string         `json:"actor_type"`
	ActorID    string         `json:"actor_id,omitempty"`
	EntityKind string         `json:"entity_kind"`
	EntityID   string         `json:"entity_id"`
	Decision   string         `json:"decision,omitempty"`
	Reason     string         `json:"reason,omitempty"`
	Payload    map[string]any `json:"payload,omitempty"`
}

func toAuditEventResponse(e audit.Event) auditEventResponse {
	return auditEventResponse{
		Category:   string(e.Category),
		Severity:   string(e.Severity),
		Timestamp:  e.Timestamp.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		Action:     e.Action,
		ActorType:  e.ActorType,
		ActorID:    e.ActorID,
		EntityKind: e.EntityKind,
		EntityID:   e.EntityID,
		Decision:   e.Decision,
		Reason:     e.Reason,
		Payload:    e.Payload,
	}
}
