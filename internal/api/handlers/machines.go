// Package handlers contains the HTTP handlers of the maintenance API.
package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"labmaint/internal/core"
	"labmaint/internal/maintenance"
	"labmaint/internal/types"
)

// MachineLister returns every machine with statuses already derived.
type MachineLister interface {
	List(ctx context.Context) ([]*types.Machine, error)
}

// Completer records a completed obligation.
type Completer interface {
	Complete(ctx context.Context, machineID, obligationType string) (*maintenance.CompletionResult, error)
}

// CompleteRequest is the body of POST /maquinas/{id}/mantenimiento.
type CompleteRequest struct {
	Type string `json:"tipo" validate:"notblank"`
}

// MachineHandler serves the machine list and the completion command.
type MachineHandler struct {
	store     MachineLister
	workflow  Completer
	validator *core.Validator
	logger    *slog.Logger
}

// NewMachineHandler creates a MachineHandler.
func NewMachineHandler(store MachineLister, workflow Completer, v *core.Validator, logger *slog.Logger) *MachineHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &MachineHandler{store: store, workflow: workflow, validator: v, logger: logger}
}

// RegisterRoutes mounts the machine routes.
func (h *MachineHandler) RegisterRoutes(r chi.Router) {
	r.Get("/maquinas", h.List)
	r.Post("/maquinas/{id}/mantenimiento", h.Complete)
}

// List handles GET /maquinas.
func (h *MachineHandler) List(w http.ResponseWriter, r *http.Request) {
	machines, err := h.store.List(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to list machines", "error", err)
		core.Error(w, r, err)
		return
	}
	if machines == nil {
		machines = []*types.Machine{}
	}
	core.JSON(w, r, http.StatusOK, machines)
}

// Complete handles POST /maquinas/{id}/mantenimiento.
func (h *MachineHandler) Complete(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))

	var req CompleteRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		core.Error(w, r, err)
		return
	}

	res, err := h.workflow.Complete(r.Context(), id, req.Type)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "maintenance completed",
		"machine_id", res.MachineID,
		"tipo", res.ObligationType,
		"next_due", res.NextDueDate,
	)
	core.OK(w, r)
}
