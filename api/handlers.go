/*
handlers.go - HTTP API handlers for the vending engine

PURPOSE:
  Exposes vending machines via REST API. Handles HTTP request/response,
  JSON serialization, and delegates to the session service.

ENDPOINTS:
  Machines:
    GET    /api/machines                       List all machines
    POST   /api/machines                       Create machine from JSON definition
    GET    /api/machines/{id}                  Get machine state
    GET    /api/machines/{id}/events           Transition log

  Customer:
    POST   /api/machines/{id}/coins            Insert a coin {"size","weight"}
    POST   /api/machines/{id}/return           Return inserted coins
    POST   /api/machines/{id}/display          Check the display
    POST   /api/machines/{id}/vend             Select a product {"product"}
    POST   /api/machines/{id}/coin-return/take Empty the coin return

  Operator:
    POST   /api/machines/{id}/restock          Add stock {"product","quantity"}
    POST   /api/machines/{id}/coins/load       Add float {"denomination","quantity"}

  Scenarios / monitoring:
    GET    /api/scenarios                      List demo presets
    POST   /api/scenarios/load                 Create a machine from a preset
    GET    /api/alerts                         Machines that cannot make change
    GET    /health                             Liveness and database check

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Invalid input or machine definition
  - 404: Machine not found
  - 409: Duplicate machine ID, version conflict
  - 500: Internal errors

  A vend that cannot complete (sold out, not enough money) is NOT an error.
  It returns 200 and the display says why.

SECURITY NOTE:
  Currently NO authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo presets
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/warp/vending-engine/factory"
	"github.com/warp/vending-engine/generic"
	"github.com/warp/vending-engine/session"
	"github.com/warp/vending-engine/vending"
)

// maxBodyBytes caps request bodies. Machine definitions are small.
const maxBodyBytes = 1 << 20

var validate = validator.New()

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Service *session.Service
	Monitor *ExactChangeMonitor
	// DB is checked by /health when set.
	DB      Pinger

	logger *zap.Logger
}

// NewHandler creates a new handler over the given service.
func NewHandler(svc *session.Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{Service: svc, logger: logger}
}

// =============================================================================
// MACHINE HANDLERS
// =============================================================================

// ListMachines returns all machines.
// GET /api/machines
func (h *Handler) ListMachines(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.Service.List(r.Context())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	dtos := make([]MachineDTO, len(sessions))
	for i, s := range sessions {
		dtos[i] = toMachineDTO(s)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateMachine builds a machine from a JSON definition and persists it.
// POST /api/machines
func (h *Handler) CreateMachine(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to read request body", err)
		return
	}
	if len(body) == 0 {
		body = []byte("{}")
	}

	id, m, err := factory.ParseMachine(string(body))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	sess, err := h.Service.Create(r.Context(), id, m)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toMachineDTO(sess))
}

// GetMachine returns one machine.
// GET /api/machines/{id}
func (h *Handler) GetMachine(w http.ResponseWriter, r *http.Request) {
	sess, err := h.Service.Get(r.Context(), machineID(r))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toMachineDTO(sess))
}

// GetEvents returns the machine's transition log, oldest first.
// GET /api/machines/{id}/events
func (h *Handler) GetEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.Service.Events(r.Context(), machineID(r))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	dtos := make([]EventDTO, len(events))
	for i, ev := range events {
		dtos[i] = toEventDTO(ev)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// CUSTOMER HANDLERS
// =============================================================================

// InsertCoin inserts one coin.
// POST /api/machines/{id}/coins
func (h *Handler) InsertCoin(w http.ResponseWriter, r *http.Request) {
	var req InsertCoinRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	size, err := vending.ParseSize(req.Size)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	weight, err := vending.ParseWeight(req.Weight)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	sess, err := h.Service.InsertCoin(r.Context(), machineID(r), vending.Coin{Size: size, Weight: weight})
	h.respond(w, sess, err)
}

// ReturnCoins moves the inserted coins to the coin return.
// POST /api/machines/{id}/return
func (h *Handler) ReturnCoins(w http.ResponseWriter, r *http.Request) {
	sess, err := h.Service.ReturnCoins(r.Context(), machineID(r))
	h.respond(w, sess, err)
}

// CheckDisplay refreshes the display.
// POST /api/machines/{id}/display
func (h *Handler) CheckDisplay(w http.ResponseWriter, r *http.Request) {
	sess, err := h.Service.CheckDisplay(r.Context(), machineID(r))
	h.respond(w, sess, err)
}

// Vend selects a product.
// POST /api/machines/{id}/vend
func (h *Handler) Vend(w http.ResponseWriter, r *http.Request) {
	var req VendRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	// Unknown names resolve to NoProduct, which the machine reports as SOLD OUT.
	product, _ := vending.ParseProduct(req.Product)

	sess, err := h.Service.Vend(r.Context(), machineID(r), product)
	h.respond(w, sess, err)
}

// TakeCoinReturn empties the coin return.
// POST /api/machines/{id}/coin-return/take
func (h *Handler) TakeCoinReturn(w http.ResponseWriter, r *http.Request) {
	sess, taken, err := h.Service.TakeCoinReturn(r.Context(), machineID(r))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, TakeCoinReturnResponse{
		Machine: toMachineDTO(sess),
		Taken:   toBankDTO(taken),
	})
}

// =============================================================================
// OPERATOR HANDLERS
// =============================================================================

// Restock adds product stock.
// POST /api/machines/{id}/restock
func (h *Handler) Restock(w http.ResponseWriter, r *http.Request) {
	var req RestockRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	product, ok := vending.ParseProduct(req.Product)
	if !ok {
		writeError(w, http.StatusBadRequest, "Unknown product",
			fmt.Errorf("%w: product %q", generic.ErrInvalidInput, req.Product))
		return
	}

	sess, err := h.Service.Restock(r.Context(), machineID(r), product, req.Quantity)
	h.respond(w, sess, err)
}

// LoadCoins adds coins to the machine bank.
// POST /api/machines/{id}/coins/load
func (h *Handler) LoadCoins(w http.ResponseWriter, r *http.Request) {
	var req LoadCoinsRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	d, ok := vending.ParseDenomination(req.Denomination)
	if !ok {
		writeError(w, http.StatusBadRequest, "Unknown denomination",
			fmt.Errorf("%w: denomination %q", generic.ErrInvalidInput, req.Denomination))
		return
	}

	sess, err := h.Service.LoadCoins(r.Context(), machineID(r), d, req.Quantity)
	h.respond(w, sess, err)
}

// =============================================================================
// MONITORING
// =============================================================================

// ListAlerts returns the machines the monitor last flagged.
// GET /api/alerts
func (h *Handler) ListAlerts(w http.ResponseWriter, r *http.Request) {
	resp := AlertsResponse{Alerts: []AlertDTO{}}
	if h.Monitor != nil {
		alerts, checkedAt := h.Monitor.Alerts()
		for _, a := range alerts {
			resp.Alerts = append(resp.Alerts, toAlertDTO(a))
		}
		if !checkedAt.IsZero() {
			resp.CheckedAt = checkedAt.Format(time.RFC3339)
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// Health reports whether the server and its database are up.
// GET /health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if h.DB != nil {
		if err := h.DB.Ping(r.Context()); err != nil {
			h.logger.Error("health check failed", zap.Error(err))
			writeJSON(w, http.StatusServiceUnavailable, HealthResponse{Status: "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// =============================================================================
// HELPERS
// =============================================================================

func machineID(r *http.Request) generic.EntityID {
	return generic.EntityID(chi.URLParam(r, "id"))
}

func (h *Handler) respond(w http.ResponseWriter, sess session.Session, err error) {
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toMachineDTO(sess))
}

// decodeJSON decodes the request body into v. An empty body leaves v zero.
func decodeJSON(r *http.Request, v any) error {
	err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func decodeAndValidate(r *http.Request, v any) error {
	if err := decodeJSON(r, v); err != nil {
		return err
	}
	return validate.Struct(v)
}

// writeServiceError maps engine errors to HTTP status codes.
func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case generic.IsNotFound(err):
		writeError(w, http.StatusNotFound, "Machine not found", err)
	case errors.Is(err, generic.ErrDuplicateEntity):
		writeError(w, http.StatusConflict, "Machine already exists", err)
	case generic.IsRetryable(err):
		writeError(w, http.StatusConflict, "Machine was modified concurrently, retry", err)
	case errors.Is(err, generic.ErrInvalidDefinition):
		writeError(w, http.StatusBadRequest, "Invalid machine definition", err)
	case generic.IsClientError(err):
		writeError(w, http.StatusBadRequest, "Invalid input", err)
	default:
		h.logger.Error("request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Internal error", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
