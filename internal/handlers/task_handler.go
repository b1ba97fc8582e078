package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"

	"github.com/taskpop/backend/internal/geo"
	"github.com/taskpop/backend/internal/middleware"
	"github.com/taskpop/backend/internal/models"
	"github.com/taskpop/backend/internal/services"
)

// EscrowService is the engine surface the task handler needs.
type EscrowService interface {
	PostTask(ctx context.Context, actor services.Actor, in services.TaskInput) (*models.Task, error)
	ClaimTask(ctx context.Context, actor services.Actor, taskID uuid.UUID) error
	MarkDone(ctx context.Context, actor services.Actor, taskID uuid.UUID) error
	ConfirmAndRate(ctx context.Context, actor services.Actor, taskID uuid.UUID, rating int) error
	DeleteTask(ctx context.Context, actor services.Actor, taskID uuid.UUID) error
	GetTask(ctx context.Context, taskID uuid.UUID) (*models.Task, error)
}

// SnapshotProvider materializes the live task list (sweep applied).
type SnapshotProvider interface {
	Snapshot(ctx context.Context) ([]*models.Task, error)
}

type TaskHandler struct {
	Engine EscrowService
	Feed   SnapshotProvider
	Logger *slog.Logger
}

// --- POST /api/v1/tasks ---

type rewardPayload struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
}

type createTaskRequest struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Reward      rewardPayload   `json:"reward"`
	Location    models.Location `json:"location"`
}

// CreateTask handles POST /api/v1/tasks: validate -> escrow debit + insert
// (one transaction inside the engine) -> 201.
func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromCtx(r.Context())
	if !ok {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}

	var req createTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		http.Error(w, `{"error":"title is required"}`, http.StatusBadRequest)
		return
	}

	pence, err := rewardToPence(req.Reward.Amount)
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
		return
	}

	timer := prometheus.NewTimer(escrowOpDuration.WithLabelValues("post"))
	task, err := h.Engine.PostTask(r.Context(), actor, services.TaskInput{
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		Category:    req.Category,
		RewardPence: pence,
		Location:    req.Location,
	})
	timer.ObserveDuration()
	countOutcome("post", err)
	if err != nil {
		h.respondEngineError(w, "post task", err)
		return
	}
	writeJSON(w, http.StatusCreated, task)
}

// rewardToPence converts the decimal reward amount into whole pence.
// Negative or sub-penny amounts are invalid; zero is a volunteer task.
func rewardToPence(amount decimal.Decimal) (int64, error) {
	if amount.IsNegative() {
		return 0, services.ErrInvalidReward
	}
	pence := amount.Mul(decimal.NewFromInt(100))
	if !pence.IsInteger() {
		return 0, services.ErrInvalidReward
	}
	return pence.IntPart(), nil
}

// --- GET /api/v1/tasks ---

// ListTasks handles GET /api/v1/tasks. The snapshot is materialized with
// the expiry sweep applied; category, free-text and distance filters are
// presentation-side narrowing of that snapshot.
func (h *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.Feed.Snapshot(r.Context())
	if err != nil {
		h.Logger.Error("list tasks", "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}

	q := r.URL.Query()
	category := q.Get("category")
	search := strings.ToLower(q.Get("q"))

	var nearLat, nearLng, radiusKm float64
	filterByDistance := false
	if q.Get("lat") != "" && q.Get("lng") != "" {
		var err1, err2 error
		nearLat, err1 = strconv.ParseFloat(q.Get("lat"), 64)
		nearLng, err2 = strconv.ParseFloat(q.Get("lng"), 64)
		if err1 != nil || err2 != nil {
			http.Error(w, `{"error":"invalid lat/lng"}`, http.StatusBadRequest)
			return
		}
		radiusKm = geo.DefaultRadiusKm
		if rk := q.Get("radius_km"); rk != "" {
			radiusKm, err = strconv.ParseFloat(rk, 64)
			if err != nil || radiusKm <= 0 {
				http.Error(w, `{"error":"invalid radius_km"}`, http.StatusBadRequest)
				return
			}
		}
		filterByDistance = true
	}

	filtered := make([]*models.Task, 0, len(tasks))
	for _, t := range tasks {
		if category != "" && category != "all" && t.Category != category {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(t.Title), search) &&
			!strings.Contains(strings.ToLower(t.Description), search) {
			continue
		}
		if filterByDistance && geo.DistanceKm(nearLat, nearLng, t.Location.Lat, t.Location.Lng) > radiusKm {
			continue
		}
		filtered = append(filtered, t)
	}
	writeJSON(w, http.StatusOK, filtered)
}

// --- GET /api/v1/tasks/{id} ---

func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	taskID, ok := parseTaskID(r)
	if !ok {
		http.Error(w, `{"error":"invalid task id"}`, http.StatusBadRequest)
		return
	}
	task, err := h.Engine.GetTask(r.Context(), taskID)
	if err != nil {
		h.respondEngineError(w, "get task", err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// --- POST /api/v1/tasks/{id}/claim ---

func (h *TaskHandler) ClaimTask(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "claim", func(ctx context.Context, actor services.Actor, id uuid.UUID) error {
		return h.Engine.ClaimTask(ctx, actor, id)
	})
}

// --- POST /api/v1/tasks/{id}/done ---

func (h *TaskHandler) MarkDone(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "done", func(ctx context.Context, actor services.Actor, id uuid.UUID) error {
		return h.Engine.MarkDone(ctx, actor, id)
	})
}

// --- POST /api/v1/tasks/{id}/confirm ---

type confirmRequest struct {
	Rating int `json:"rating"`
}

func (h *TaskHandler) ConfirmAndRate(w http.ResponseWriter, r *http.Request) {
	var req confirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	h.transition(w, r, "confirm", func(ctx context.Context, actor services.Actor, id uuid.UUID) error {
		return h.Engine.ConfirmAndRate(ctx, actor, id, req.Rating)
	})
}

// --- DELETE /api/v1/tasks/{id} ---

func (h *TaskHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "delete", func(ctx context.Context, actor services.Actor, id uuid.UUID) error {
		return h.Engine.DeleteTask(ctx, actor, id)
	})
}

// transition runs a lifecycle action with the shared auth/parse/respond
// plumbing.
func (h *TaskHandler) transition(w http.ResponseWriter, r *http.Request, op string, fn func(ctx context.Context, actor services.Actor, id uuid.UUID) error) {
	actor, ok := actorFromCtx(r.Context())
	if !ok {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	taskID, ok := parseTaskID(r)
	if !ok {
		http.Error(w, `{"error":"invalid task id"}`, http.StatusBadRequest)
		return
	}

	timer := prometheus.NewTimer(escrowOpDuration.WithLabelValues(op))
	err := fn(r.Context(), actor, taskID)
	timer.ObserveDuration()
	countOutcome(op, err)
	if err != nil {
		h.respondEngineError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// respondEngineError maps the engine's error taxonomy onto status codes.
// Money-moving failures keep their full message so the caller sees the
// reason (e.g. the exact shortfall), never a generic error.
func (h *TaskHandler) respondEngineError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, services.ErrInvalidReward),
		errors.Is(err, services.ErrInvalidCategory),
		errors.Is(err, services.ErrInvalidRating):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
	case errors.Is(err, services.ErrInsufficientFunds):
		writeJSON(w, http.StatusPaymentRequired, map[string]string{"error": err.Error()})
	case errors.Is(err, services.ErrAlreadyClaimed),
		errors.Is(err, services.ErrAlreadyCompleted),
		errors.Is(err, services.ErrInvalidTransition):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	case errors.Is(err, services.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	case errors.Is(err, services.ErrUnauthorized):
		writeJSON(w, http.StatusForbidden, map[string]string{"error": err.Error()})
	default:
		h.Logger.Error(op+" failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

// --- helpers ---

func actorFromCtx(ctx context.Context) (services.Actor, bool) {
	ident := middleware.IdentityFromCtx(ctx)
	if ident == nil {
		return services.Actor{}, false
	}
	return services.Actor{ID: ident.UserID, Name: ident.DisplayName}, true
}

// parseTaskID extracts the task UUID from paths like /api/v1/tasks/{id}
// and /api/v1/tasks/{id}/claim.
func parseTaskID(r *http.Request) (uuid.UUID, bool) {
	path := strings.TrimPrefix(r.URL.Path, "/api/v1/tasks/")
	parts := strings.SplitN(path, "/", 2)
	if len(parts) == 0 || parts[0] == "" {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(parts[0])
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
