package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/optoplus-health/optoplus/domains/clinics/be/service"
	platformlogging "github.com/optoplus-health/optoplus/platform/go/logging"
)

// Handler exposes the clinic admin API.
type Handler struct {
	svc    *service.Service
	logger *zap.Logger
}

// New constructs a Handler instance.
func New(svc *service.Service, logger *zap.Logger) *Handler {
	if svc == nil {
		panic("clinics service is required")
	}
	if logger == nil {
		panic("logger is required")
	}
	return &Handler{svc: svc, logger: logger}
}

// Routes mounts the clinic admin endpoints.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.create)
	r.Get("/", h.list)
	r.Get("/{clinicID}", h.get)
	r.Patch("/{clinicID}", h.update)
	r.Delete("/{clinicID}", h.deactivate)
}

type clinicPayload struct {
	ID                int64   `json:"id"`
	Name              string  `json:"name"`
	DBName            string  `json:"dbName"`
	Address           *string `json:"address,omitempty"`
	Phone             *string `json:"phone,omitempty"`
	ManagerName       *string `json:"managerName,omitempty"`
	EstablishmentYear *string `json:"establishmentYear,omitempty"`
	LogoURL           *string `json:"logoUrl,omitempty"`
	ManagerID         *int64  `json:"managerId,omitempty"`
	Active            bool    `json:"active"`
	CreatedAt         string  `json:"createdAt"`
	UpdatedAt         string  `json:"updatedAt"`
}

type createRequest struct {
	Name              string  `json:"name"`
	EnglishName       string  `json:"englishName,omitempty"`
	Address           *string `json:"address,omitempty"`
	Phone             *string `json:"phone,omitempty"`
	ManagerName       *string `json:"managerName,omitempty"`
	EstablishmentYear *string `json:"establishmentYear,omitempty"`
	LogoURL           *string `json:"logoUrl,omitempty"`
	ManagerID         *int64  `json:"managerId,omitempty"`
}

type updateRequest struct {
	Name              *string `json:"name,omitempty"`
	Address           *string `json:"address,omitempty"`
	Phone             *string `json:"phone,omitempty"`
	ManagerName       *string `json:"managerName,omitempty"`
	EstablishmentYear *string `json:"establishmentYear,omitempty"`
	LogoURL           *string `json:"logoUrl,omitempty"`
	ManagerID         *int64  `json:"managerId,omitempty"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "clinic name is required")
		return
	}

	clinic, err := h.svc.Provision(r.Context(), service.CreateInput{
		Name:              req.Name,
		EnglishName:       req.EnglishName,
		Address:           req.Address,
		Phone:             req.Phone,
		ManagerName:       req.ManagerName,
		EstablishmentYear: req.EstablishmentYear,
		LogoURL:           req.LogoURL,
		ManagerID:         req.ManagerID,
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	w.Header().Set("Location", "/api/v1/admin/clinics/"+strconv.FormatInt(clinic.ID, 10))
	writeJSON(w, http.StatusCreated, toPayload(clinic))
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	var active *bool
	switch r.URL.Query().Get("status") {
	case "active":
		v := true
		active = &v
	case "inactive":
		v := false
		active = &v
	case "":
	default:
		writeError(w, http.StatusBadRequest, "status must be active or inactive")
		return
	}

	clinics, err := h.svc.List(r.Context(), active)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	items := make([]clinicPayload, 0, len(clinics))
	for _, c := range clinics {
		items = append(items, toPayload(c))
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := clinicID(w, r)
	if !ok {
		return
	}

	clinic, err := h.svc.Get(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toPayload(clinic))
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := clinicID(w, r)
	if !ok {
		return
	}

	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	clinic, err := h.svc.Update(r.Context(), id, service.UpdateInput{
		Name:              req.Name,
		Address:           req.Address,
		Phone:             req.Phone,
		ManagerName:       req.ManagerName,
		EstablishmentYear: req.EstablishmentYear,
		LogoURL:           req.LogoURL,
		ManagerID:         req.ManagerID,
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toPayload(clinic))
}

func (h *Handler) deactivate(w http.ResponseWriter, r *http.Request) {
	id, ok := clinicID(w, r)
	if !ok {
		return
	}

	if err := h.svc.Deactivate(r.Context(), id); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	logger := platformlogging.FromRequest(r, h.logger)

	var provErr *service.ProvisionError
	if errors.As(err, &provErr) {
		logger.Error("clinic provisioning failed",
			zap.String("step", string(provErr.Step)),
			zap.String("db_name", provErr.DBName),
			zap.Error(provErr.Err))
	}

	switch {
	case errors.Is(err, service.ErrDuplicateName):
		writeError(w, http.StatusConflict, "clinic database name already taken")
	case errors.Is(err, service.ErrNotFound):
		writeError(w, http.StatusNotFound, "clinic not found")
	default:
		if provErr == nil {
			logger.Error("clinics request failed", zap.Error(err))
		}
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func clinicID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "clinicID"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid clinic id")
		return 0, false
	}
	return id, true
}

func toPayload(c service.Clinic) clinicPayload {
	return clinicPayload{
		ID:                c.ID,
		Name:              c.Name,
		DBName:            c.DBName,
		Address:           c.Address,
		Phone:             c.Phone,
		ManagerName:       c.ManagerName,
		EstablishmentYear: c.EstablishmentYear,
		LogoURL:           c.LogoURL,
		ManagerID:         c.ManagerID,
		Active:            c.Active,
		CreatedAt:         c.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:         c.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}
