package exercises

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/cuentos-signos/backend/internal/models"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

// maxBodyBytes caps request bodies; a story plus its exercises is small.
const maxBodyBytes = 1 << 20

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) Finalize(w http.ResponseWriter, r *http.Request) {
	var req models.FinalizeRequest
	if err := decode(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body: " + err.Error()})
		return
	}

	res, err := h.service.Finalize(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) Validate(w http.ResponseWriter, r *http.Request) {
	var req models.ValidateRequest
	if err := decode(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body: " + err.Error()})
		return
	}

	resp, err := h.service.Validate(req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) ListLevels(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.Levels())
}

func (h *Handler) GetLevel(w http.ResponseWriter, r *http.Request) {
	n, err := strconv.Atoi(mux.Vars(r)["level"])
	if err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid level"})
		return
	}
	lvl, ok := h.service.Level(n)
	if !ok {
		writeJSON(w, http.StatusNotFound, models.ErrorResponse{Error: "Level not found"})
		return
	}
	writeJSON(w, http.StatusOK, lvl)
}

func (h *Handler) GetRun(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid run ID"})
		return
	}
	run, err := h.service.GetRun(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func decode(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
	case errors.Is(err, ErrRunNotFound):
		writeJSON(w, http.StatusNotFound, models.ErrorResponse{Error: "Run not found"})
	case errors.Is(err, ErrAuditDisabled):
		writeJSON(w, http.StatusServiceUnavailable, models.ErrorResponse{Error: "Run history is disabled"})
	default:
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Internal server error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
