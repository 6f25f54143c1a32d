package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"museion/internal/events"
	dErrors "museion/pkg/domain-errors"
	"museion/pkg/platform/httputil"
)

const (
	defaultLimit = 100
	maxLimit     = 1000
)

// Reader serves the event feed. Backed by the Badger archive when configured,
// otherwise by the outbox store directly.
type Reader interface {
	ListAfter(ctx context.Context, after uint64, limit int) ([]events.Event, error)
}

// Handler exposes the committed event log for polling consumers.
type Handler struct {
	reader Reader
	logger *slog.Logger
}

func New(reader Reader, logger *slog.Logger) *Handler {
	return &Handler{reader: reader, logger: logger}
}

// Register mounts the event feed on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/events", h.HandleList)
}

// HandleList handles GET /events?after=N&limit=M. Events come back in
// sequence order; consumers page by passing the last seen seq as after.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	after, err := parseUintParam(r, "after", 0)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	limit, err := parseUintParam(r, "limit", defaultLimit)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if limit == 0 || limit > maxLimit {
		limit = maxLimit
	}

	list, err := h.reader.ListAfter(ctx, after, int(limit))
	if err != nil {
		h.logger.ErrorContext(ctx, "event feed read failed", "error", err)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read events"))
		return
	}

	next := after
	if len(list) > 0 {
		next = list[len(list)-1].Seq
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"events": list,
		"next":   next,
	})
}

func parseUintParam(r *http.Request, name string, fallback uint64) (uint64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, dErrors.New(dErrors.CodeBadRequest, "invalid "+name+" parameter")
	}
	return value, nil
}
