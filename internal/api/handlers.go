package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/xtding233/packpicker/internal/gacha"
	"github.com/xtding233/packpicker/internal/logging"
	"github.com/xtding233/packpicker/internal/pack"
	"github.com/xtding233/packpicker/internal/picker"
	"github.com/xtding233/packpicker/internal/snapshot"
)

// UserIDHeader identifies the caller. Authentication happens upstream.
const UserIDHeader = "X-User-ID"

const rateLimitedMessage = "No data. Refresh again soon."

// PickerService serves pack picker snapshots.
type PickerService interface {
	Get(ctx context.Context, userID string) (*snapshot.Result, error)
}

// BoosterService answers per-booster queries.
type BoosterService interface {
	Odds(ctx context.Context, boosterID string) (pack.Booster, map[pack.Rarity]picker.RarityOdds, error)
	Open(ctx context.Context, userID, boosterID string, rng gacha.RandomSource) (pack.Booster, []picker.OpenedCard, error)
}

// BoosterLister lists the catalog boosters.
type BoosterLister interface {
	ListBoosters(ctx context.Context) ([]pack.Booster, error)
}

// Pinger reports storage health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler holds the HTTP handlers.
type Handler struct {
	picker   PickerService
	boosters BoosterService
	catalog  BoosterLister
	db       Pinger
	rng      func() gacha.RandomSource
}

// NewHandler creates a Handler. rng supplies the random source of simulated
// openings; nil means crypto randomness.
func NewHandler(p PickerService, b BoosterService, c BoosterLister, db Pinger, rng func() gacha.RandomSource) *Handler {
	if rng == nil {
		rng = gacha.DefaultRNG
	}
	return &Handler{picker: p, boosters: b, catalog: c, db: db, rng: rng}
}

// PackPicker handles GET /api/pack/picker.
func (h *Handler) PackPicker(w http.ResponseWriter, r *http.Request) {
	userID := userFromContext(r.Context())
	res, err := h.picker.Get(r.Context(), userID)
	switch {
	case errors.Is(err, snapshot.ErrRateLimited):
		respondError(w, r, http.StatusTooManyRequests, rateLimitedMessage, nil)
		return
	case err != nil:
		h.simulationError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, newPickerResponse(res.Boosters, res.LastRefresh))
}

// Boosters handles GET /api/boosters.
func (h *Handler) Boosters(w http.ResponseWriter, r *http.Request) {
	boosters, err := h.catalog.ListBoosters(r.Context())
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, "failed to list boosters", err)
		return
	}
	resp := boostersResponse{Boosters: make([]boosterInfo, 0, len(boosters))}
	for _, b := range boosters {
		resp.Boosters = append(resp.Boosters, newBoosterInfo(b))
	}
	respondJSON(w, r, http.StatusOK, resp)
}

// BoosterOdds handles GET /api/boosters/{boosterID}/odds.
func (h *Handler) BoosterOdds(w http.ResponseWriter, r *http.Request) {
	b, odds, err := h.boosters.Odds(r.Context(), chi.URLParam(r, "boosterID"))
	if err != nil {
		h.simulationError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, newOddsResponse(b, odds))
}

// OpenBooster handles POST /api/boosters/{boosterID}/open.
func (h *Handler) OpenBooster(w http.ResponseWriter, r *http.Request) {
	userID := userFromContext(r.Context())
	b, pulls, err := h.boosters.Open(r.Context(), userID, chi.URLParam(r, "boosterID"), h.rng())
	if err != nil {
		h.simulationError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, newOpenResponse(b, pulls))
}

// Healthz handles GET /healthz.
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	if err := h.db.Ping(r.Context()); err != nil {
		respondError(w, r, http.StatusServiceUnavailable, "database unavailable", err)
		return
	}
	respondJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) simulationError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, picker.ErrBoosterNotFound):
		respondError(w, r, http.StatusNotFound, "booster not found", nil)
	case errors.Is(err, picker.ErrSimulationTimeout):
		logging.Ctx(r.Context()).Warn().Err(err).Msg("simulation timed out")
		respondError(w, r, http.StatusGatewayTimeout, "simulation timed out", nil)
	default:
		respondError(w, r, http.StatusInternalServerError, "internal error", err)
	}
}

// RequireUser rejects requests without a user ID header and puts the ID into
// the request context.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := strings.TrimSpace(r.Header.Get(UserIDHeader))
		if userID == "" {
			respondError(w, r, http.StatusUnauthorized, "missing "+UserIDHeader+" header", nil)
			return
		}
		next.ServeHTTP(w, r.WithContext(logging.ContextWithUserID(r.Context(), userID)))
	})
}

func userFromContext(ctx context.Context) string {
	return logging.UserIDFromContext(ctx)
}
