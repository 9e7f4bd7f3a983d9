package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/optoplus-health/optoplus/domains/sales/be/service"
	platformauth "github.com/optoplus-health/optoplus/platform/go/auth"
	platformlogging "github.com/optoplus-health/optoplus/platform/go/logging"
	"github.com/optoplus-health/optoplus/platform/go/tenant"
)

// Handler exposes the clinic-scoped sales API. Every endpoint requires a
// resolved clinic Space on the context.
type Handler struct {
	svc    *service.Service
	logger *zap.Logger
}

// New constructs a Handler instance.
func New(svc *service.Service, logger *zap.Logger) *Handler {
	if svc == nil {
		panic("sales service is required")
	}
	if logger == nil {
		panic("logger is required")
	}
	return &Handler{svc: svc, logger: logger}
}

// Routes mounts the sales endpoints.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.record)
	r.Get("/", h.list)
	r.Get("/{saleID}", h.get)
}

type saleItemRequest struct {
	ProductID int64 `json:"productId"`
	Quantity  int32 `json:"quantity"`
	UnitPrice int64 `json:"unitPrice"`
}

type recordRequest struct {
	VisitID        *int64            `json:"visitId,omitempty"`
	PatientID      int64             `json:"patientId"`
	TotalAmount    int64             `json:"totalAmount"`
	DiscountAmount int64             `json:"discountAmount"`
	PaymentMethod  string            `json:"paymentMethod"`
	Items          []saleItemRequest `json:"items"`
}

type saleItemPayload struct {
	ProductID   int64  `json:"productId"`
	ProductName string `json:"productName,omitempty"`
	Quantity    int32  `json:"quantity"`
	UnitPrice   int64  `json:"unitPrice"`
	TotalPrice  int64  `json:"totalPrice"`
}

type salePayload struct {
	ID             int64             `json:"id"`
	VisitID        *int64            `json:"visitId,omitempty"`
	PatientID      int64             `json:"patientId"`
	TotalAmount    int64             `json:"totalAmount"`
	DiscountAmount int64             `json:"discountAmount"`
	FinalAmount    int64             `json:"finalAmount"`
	PaymentMethod  string            `json:"paymentMethod"`
	SoldBy         int64             `json:"soldBy"`
	SaleDate       string            `json:"saleDate"`
	Items          []saleItemPayload `json:"items,omitempty"`
}

func (h *Handler) record(w http.ResponseWriter, r *http.Request) {
	space, creds, ok := h.requireClinic(w, r)
	if !ok {
		return
	}

	var req recordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	items := make([]service.SaleItem, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, service.SaleItem{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		})
	}

	id, err := h.svc.Record(r.Context(), space.DatabaseKey, service.RecordInput{
		VisitID:        req.VisitID,
		PatientID:      req.PatientID,
		TotalAmount:    req.TotalAmount,
		DiscountAmount: req.DiscountAmount,
		PaymentMethod:  req.PaymentMethod,
		SoldBy:         creds.UserID,
		Items:          items,
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]int64{"id": id})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	space, _, ok := h.requireClinic(w, r)
	if !ok {
		return
	}

	id, err := strconv.ParseInt(chi.URLParam(r, "saleID"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid sale id")
		return
	}

	sale, err := h.svc.GetByID(r.Context(), space.DatabaseKey, id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toPayload(sale))
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	space, _, ok := h.requireClinic(w, r)
	if !ok {
		return
	}

	var filter service.ListFilter
	q := r.URL.Query()
	if v := q.Get("patientId"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid patientId")
			return
		}
		filter.PatientID = &id
	}
	if v := q.Get("startDate"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid startDate")
			return
		}
		filter.StartDate = &t
	}
	if v := q.Get("endDate"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid endDate")
			return
		}
		filter.EndDate = &t
	}

	sales, err := h.svc.List(r.Context(), space.DatabaseKey, filter)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	items := make([]salePayload, 0, len(sales))
	for _, sale := range sales {
		items = append(items, toPayload(sale))
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h *Handler) requireClinic(w http.ResponseWriter, r *http.Request) (tenant.Space, *platformauth.UserCredentials, bool) {
	space, ok := tenant.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "clinic required")
		return tenant.Space{}, nil, false
	}
	creds, ok := platformauth.UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return tenant.Space{}, nil, false
	}
	return space, creds, true
}

func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		writeError(w, http.StatusNotFound, "sale not found")
	case errors.Is(err, service.ErrNoItems):
		writeError(w, http.StatusBadRequest, "sale requires at least one item")
	case errors.Is(err, service.ErrInsufficientStock):
		writeError(w, http.StatusConflict, "insufficient product stock")
	default:
		platformlogging.FromRequest(r, h.logger).Error("sales request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func toPayload(sale service.Sale) salePayload {
	items := make([]saleItemPayload, 0, len(sale.Items))
	for _, item := range sale.Items {
		items = append(items, saleItemPayload{
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			TotalPrice:  item.TotalPrice,
		})
	}
	return salePayload{
		ID:             sale.ID,
		VisitID:        sale.VisitID,
		PatientID:      sale.PatientID,
		TotalAmount:    sale.TotalAmount,
		DiscountAmount: sale.DiscountAmount,
		FinalAmount:    sale.FinalAmount,
		PaymentMethod:  sale.PaymentMethod,
		SoldBy:         sale.SoldBy,
		SaleDate:       sale.SaleDate.UTC().Format(time.RFC3339),
		Items:          items,
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
