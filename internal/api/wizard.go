package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/ashureev/research-wizard/internal/domain"
	"github.com/ashureev/research-wizard/internal/identity"
	"github.com/ashureev/research-wizard/internal/wizard"
	"github.com/go-chi/chi/v5"
)

// ExportFilename is the download name of the plain-text summary artifact.
const ExportFilename = "Research_Plan_Summary.txt"

// RegisterRoutes registers the wizard API routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api/wizard", func(r chi.Router) {
		r.Post("/message", h.HandleMessage)
		r.Post("/step", h.HandleSelectStep)
		r.Get("/state", h.HandleState)
		r.Get("/export", h.HandleExport)
	})
	r.Get("/api/health", h.HandleHealth)
}

type messageRequest struct {
	Message string `json:"message"`
}

type messageResponse struct {
	Reply       string `json:"reply"`
	Step        string `json:"step"`
	SubStep     string `json:"sub_step,omitempty"`
	Advanced    bool   `json:"advanced"`
	Instruction string `json:"instruction,omitempty"`
	Failed      bool   `json:"failed,omitempty"`
	Summary     string `json:"summary"`
}

// HandleMessage handles POST /api/wizard/message: one chat exchange.
func (h *Handler) HandleMessage(w http.ResponseWriter, r *http.Request) {
	key := identity.Key(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	var req messageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Message == "" {
		Error(w, http.StatusBadRequest, "message is required")
		return
	}

	res, err := h.mgr.SendMessage(r.Context(), key, req.Message)
	if err != nil {
		if errors.Is(err, wizard.ErrBusy) {
			Error(w, http.StatusConflict, "a message is already being processed")
			return
		}
		slog.Error("message exchange failed", "error", err)
		Error(w, http.StatusInternalServerError, "failed to process message")
		return
	}
	if res.Dropped {
		// The student switched steps while this reply was in flight; the
		// reply was discarded and the client should refresh its state.
		Error(w, http.StatusConflict, "step changed while the reply was in flight")
		return
	}

	JSON(w, http.StatusOK, messageResponse{
		Reply:       res.Reply,
		Step:        res.Step,
		SubStep:     res.SubStep,
		Advanced:    res.Advanced,
		Instruction: res.Instruction,
		Failed:      res.Failed,
		Summary:     h.mgr.Summary(key),
	})
}

type selectStepRequest struct {
	Step string `json:"step"`
}

// HandleSelectStep handles POST /api/wizard/step: explicit navigation,
// available from every step to every step.
func (h *Handler) HandleSelectStep(w http.ResponseWriter, r *http.Request) {
	key := identity.Key(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	var req selectStepRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	stage, err := domain.ParseStage(req.Step)
	if err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}

	res := h.mgr.Select(key, stage)
	JSON(w, http.StatusOK, messageResponse{
		Step:        res.Step,
		SubStep:     res.SubStep,
		Instruction: res.Instruction,
		Summary:     h.mgr.Summary(key),
	})
}

// HandleState handles GET /api/wizard/state: the full session view.
func (h *Handler) HandleState(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, h.mgr.Snapshot(identity.Key(r.Context())))
}

// HandleExport handles GET /api/wizard/export: the plain-text summary as a
// download. The bytes are exactly the summary the student sees.
func (h *Handler) HandleExport(w http.ResponseWriter, r *http.Request) {
	summary := h.mgr.Summary(identity.Key(r.Context()))

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+ExportFilename+`"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(summary)); err != nil {
		slog.Warn("failed to write export response", "error", err)
	}
}

// HandleHealth reports service liveness and the live session count.
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, map[string]interface{}{
		"status":   "ok",
		"sessions": h.mgr.Len(),
	})
}
