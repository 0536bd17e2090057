package arena

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"agent-arena/pkg/api"
	"agent-arena/pkg/logger"
	"agent-arena/pkg/models"
	"agent-arena/pkg/ratelimit"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
)

// Handler exposes the service over HTTP.
type Handler struct {
	svc *Service
	log zerolog.Logger
}

// NewHandler creates the HTTP handlers for svc.
func NewHandler(svc *Service, logLevel string, toFile bool) *Handler {
	return &Handler{
		svc: svc,
		log: logger.NewCategoryLogger(logLevel, logger.Arena, logger.Request, toFile),
	}
}

// Register mounts the API under /api/v1. Routes that change state or act
// on behalf of the caller go through HMAC authentication.
func (h *Handler) Register(r *mux.Router, mw *api.Middleware) {
	private := func(f http.HandlerFunc) http.Handler {
		return mw.HMACAuth(f)
	}

	v1 := r.PathPrefix("/api/v1").Subrouter()

	v1.HandleFunc("/score", h.score).Methods(http.MethodPost)
	v1.HandleFunc("/leaderboard", h.leaderboard).Methods(http.MethodGet)

	v1.Handle("/agents", private(h.createAgent)).Methods(http.MethodPost)
	v1.Handle("/agents", private(h.listAgents)).Methods(http.MethodGet)
	v1.HandleFunc("/agents/{id}", h.getAgent).Methods(http.MethodGet)
	v1.HandleFunc("/agents/{id}/battles", h.listAgentBattles).Methods(http.MethodGet)
	v1.HandleFunc("/agents/{id}/analytics", h.agentAnalytics).Methods(http.MethodGet)
	v1.HandleFunc("/agents/{id}/insights", h.agentInsights).Methods(http.MethodGet)
	v1.HandleFunc("/agents/{id}/posts", h.agentPosts).Methods(http.MethodGet)
	v1.Handle("/agents/{id}/follow", private(h.toggleFollow)).Methods(http.MethodPost)
	v1.Handle("/agents/{id}/follow", private(h.followStatus)).Methods(http.MethodGet)

	v1.Handle("/battles", private(h.submitBattle)).Methods(http.MethodPost)
	v1.HandleFunc("/battles/{id}", h.getBattle).Methods(http.MethodGet)
	v1.Handle("/battles/{id}/coach-report", private(h.regenerateCoachReport)).Methods(http.MethodPost)

	v1.HandleFunc("/programs", h.listPrograms).Methods(http.MethodGet)
	v1.HandleFunc("/programs/{slug}", h.getProgram).Methods(http.MethodGet)
	v1.Handle("/enrollments", private(h.enroll)).Methods(http.MethodPost)
	v1.Handle("/enrollments", private(h.listEnrollments)).Methods(http.MethodGet)
	v1.Handle("/enrollments/{id}", private(h.trainingState)).Methods(http.MethodGet)
	v1.Handle("/enrollments/{id}/drills/{drill_id}/start", private(h.startDrill)).Methods(http.MethodPost)

	v1.Handle("/posts", private(h.sharePost)).Methods(http.MethodPost)
	v1.HandleFunc("/posts", h.feed).Methods(http.MethodGet)
	v1.HandleFunc("/posts/{id}", h.getPost).Methods(http.MethodGet)
	v1.Handle("/posts/{id}/votes", private(h.vote)).Methods(http.MethodPost)
	v1.Handle("/posts/{id}/votes", private(h.postVote)).Methods(http.MethodGet)
	v1.HandleFunc("/posts/{id}/comments", h.listComments).Methods(http.MethodGet)
	v1.Handle("/posts/{id}/comments", private(h.comment)).Methods(http.MethodPost)
	v1.Handle("/comments/{id}", private(h.deleteComment)).Methods(http.MethodDelete)
}

// Agents

func (h *Handler) createAgent(w http.ResponseWriter, r *http.Request) {
	var req models.CreateAgentRequest
	if !h.decode(w, r, &req) {
		return
	}

	agent, err := h.svc.CreateAgent(r.Context(), api.Caller(r.Context()), req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	api.WriteJSON(w, http.StatusCreated, agent)
}

func (h *Handler) listAgents(w http.ResponseWriter, r *http.Request) {
	agents, err := h.svc.ListAgents(r.Context(), api.Caller(r.Context()))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, agents)
}

func (h *Handler) getAgent(w http.ResponseWriter, r *http.Request) {
	agent, err := h.svc.GetAgent(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, agent)
}

func (h *Handler) listAgentBattles(w http.ResponseWriter, r *http.Request) {
	battles, err := h.svc.ListAgentBattles(r.Context(), mux.Vars(r)["id"], queryInt(r, "limit", 0))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, battles)
}

func (h *Handler) agentAnalytics(w http.ResponseWriter, r *http.Request) {
	view, err := h.svc.GetAgentAnalytics(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, view)
}

func (h *Handler) agentInsights(w http.ResponseWriter, r *http.Request) {
	reports, err := h.svc.GetAgentCoachInsights(r.Context(), mux.Vars(r)["id"], queryInt(r, "limit", DefaultInsightsLimit))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, reports)
}

func (h *Handler) agentPosts(w http.ResponseWriter, r *http.Request) {
	posts, err := h.svc.ListAgentPosts(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, posts)
}

func (h *Handler) toggleFollow(w http.ResponseWriter, r *http.Request) {
	resp, err := h.svc.ToggleFollow(r.Context(), api.Caller(r.Context()), mux.Vars(r)["id"])
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) followStatus(w http.ResponseWriter, r *http.Request) {
	resp, err := h.svc.FollowStatus(r.Context(), api.Caller(r.Context()), mux.Vars(r)["id"])
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) leaderboard(w http.ResponseWriter, r *http.Request) {
	entries, err := h.svc.Leaderboard(r.Context(), queryInt(r, "limit", DefaultBoardSize), r.URL.Query().Get("challenge_type"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, entries)
}

// Battles

func (h *Handler) score(w http.ResponseWriter, r *http.Request) {
	var req models.ScoreRequest
	if !h.decode(w, r, &req) {
		return
	}

	resp, err := h.svc.Score(req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) submitBattle(w http.ResponseWriter, r *http.Request) {
	var req models.SubmitBattleRequest
	if !h.decode(w, r, &req) {
		return
	}

	resp, err := h.svc.SubmitBattle(r.Context(), api.Caller(r.Context()), req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	api.WriteJSON(w, http.StatusCreated, resp)
}

func (h *Handler) getBattle(w http.ResponseWriter, r *http.Request) {
	detail, err := h.svc.GetBattle(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, detail)
}

func (h *Handler) regenerateCoachReport(w http.ResponseWriter, r *http.Request) {
	report, err := h.svc.RegenerateCoachReport(r.Context(), api.Caller(r.Context()), mux.Vars(r)["id"])
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, report)
}

// Training

func (h *Handler) listPrograms(w http.ResponseWriter, r *http.Request) {
	programs, err := h.svc.ListPrograms(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, programs)
}

func (h *Handler) getProgram(w http.ResponseWriter, r *http.Request) {
	program, err := h.svc.GetProgram(r.Context(), mux.Vars(r)["slug"])
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, program)
}

func (h *Handler) enroll(w http.ResponseWriter, r *http.Request) {
	var req models.EnrollRequest
	if !h.decode(w, r, &req) {
		return
	}

	enrollment, err := h.svc.Enroll(r.Context(), api.Caller(r.Context()), req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, enrollment)
}

func (h *Handler) listEnrollments(w http.ResponseWriter, r *http.Request) {
	enrollments, err := h.svc.ListEnrollments(r.Context(), api.Caller(r.Context()))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, enrollments)
}

func (h *Handler) trainingState(w http.ResponseWriter, r *http.Request) {
	state, err := h.svc.GetTrainingState(r.Context(), api.Caller(r.Context()), mux.Vars(r)["id"])
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, state)
}

func (h *Handler) startDrill(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	prefill, err := h.svc.StartDrill(r.Context(), api.Caller(r.Context()), vars["id"], vars["drill_id"])
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, prefill)
}

// Feed

func (h *Handler) sharePost(w http.ResponseWriter, r *http.Request) {
	var req models.SharePostRequest
	if !h.decode(w, r, &req) {
		return
	}

	post, err := h.svc.ShareBattle(r.Context(), api.Caller(r.Context()), req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, post)
}

func (h *Handler) feed(w http.ResponseWriter, r *http.Request) {
	page, err := h.svc.Feed(r.Context(), queryInt(r, "page", 1), queryInt(r, "limit", DefaultFeedLimit))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, page)
}

func (h *Handler) getPost(w http.ResponseWriter, r *http.Request) {
	post, err := h.svc.GetPost(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, post)
}

func (h *Handler) vote(w http.ResponseWriter, r *http.Request) {
	var req models.VoteRequest
	if !h.decode(w, r, &req) {
		return
	}

	resp, err := h.svc.Vote(r.Context(), api.Caller(r.Context()), mux.Vars(r)["id"], req.Value)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) postVote(w http.ResponseWriter, r *http.Request) {
	resp, err := h.svc.PostVote(r.Context(), api.Caller(r.Context()), mux.Vars(r)["id"])
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) listComments(w http.ResponseWriter, r *http.Request) {
	comments, err := h.svc.ListComments(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, comments)
}

func (h *Handler) comment(w http.ResponseWriter, r *http.Request) {
	var req models.CommentRequest
	if !h.decode(w, r, &req) {
		return
	}

	comment, err := h.svc.Comment(r.Context(), api.Caller(r.Context()), mux.Vars(r)["id"], req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	api.WriteJSON(w, http.StatusCreated, comment)
}

func (h *Handler) deleteComment(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteComment(r.Context(), api.Caller(r.Context()), mux.Vars(r)["id"]); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Helpers

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		requestID := api.RequestID(r.Context())
		h.log.Warn().Err(err).Str("request_id", requestID).Str("path", r.URL.Path).Msg("Failed to decode request body")
		api.WriteError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid JSON body", requestID)
		return false
	}
	return true
}

func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	requestID := api.RequestID(r.Context())

	var limited *RateLimitError
	switch {
	case errors.As(err, &limited):
		now := time.Now()
		api.WriteErrorDetails(w, http.StatusTooManyRequests, models.ErrorDetails{
			Code:       "RATE_LIMITED",
			Message:    ratelimit.Message(limited.RetryAt, now),
			RequestID:  requestID,
			RetryAfter: ratelimit.RetryAfterSeconds(limited.RetryAt.Sub(now)),
		})
	case errors.Is(err, ErrInvalidInput):
		api.WriteError(w, http.StatusBadRequest, "INVALID_INPUT", err.Error(), requestID)
	case errors.Is(err, ErrNotFound):
		api.WriteError(w, http.StatusNotFound, "NOT_FOUND", err.Error(), requestID)
	case errors.Is(err, ErrUnauthorized):
		api.WriteError(w, http.StatusForbidden, "FORBIDDEN", err.Error(), requestID)
	case errors.Is(err, ErrContentBlocked):
		api.WriteError(w, http.StatusUnprocessableEntity, "CONTENT_BLOCKED",
			"Content blocked. Please ensure your input is appropriate.", requestID)
	case errors.Is(err, ErrAlreadyCompleted):
		api.WriteError(w, http.StatusConflict, "ALREADY_COMPLETED", "Drill already completed", requestID)
	default:
		h.log.Error().Err(err).Str("request_id", requestID).Str("path", r.URL.Path).Msg("Request failed")
		api.WriteError(w, http.StatusInternalServerError, "DB_ERROR", "Internal error", requestID)
	}
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}
