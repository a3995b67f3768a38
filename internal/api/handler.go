package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/relaydesk/relay/internal/agent"
	"github.com/relaydesk/relay/internal/rag"
	"github.com/relaydesk/relay/internal/store"
)

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	engine    *agent.Engine
	store     *store.Store
	knowledge *rag.Service
	logger    *zap.Logger
}

// NewHandler creates a new API handler. The store and knowledge service
// may be nil when the corresponding backends are not configured.
func NewHandler(engine *agent.Engine, st *store.Store, knowledge *rag.Service, logger *zap.Logger) *Handler {
	return &Handler{
		engine:    engine,
		store:     st,
		knowledge: knowledge,
		logger:    logger,
	}
}

// Router builds the chi router with all routes.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.healthCheck)

		r.Get("/agents", h.listAgents)
		r.Post("/agents", h.createAgent)
		r.Get("/agents/{id}", h.getAgent)
		r.Delete("/agents/{id}", h.deleteAgent)
		r.Post("/agents/{id}/chat", h.chatWithAgent)
		r.Post("/agents/{id}/task", h.runTask)

		r.Get("/providers", h.listProviders)
		r.Get("/tools", h.listTools)
		r.Post("/knowledge/search", h.searchKnowledge)
		r.Post("/knowledge/index", h.indexKnowledge)
		r.Delete("/knowledge/{id}", h.deleteKnowledge)
	})

	return r
}

func (h *Handler) healthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": "relay"})
}

func (h *Handler) listAgents(w http.ResponseWriter, r *http.Request) {
	agents := h.engine.List()
	writeJSON(w, http.StatusOK, agents)
}

func (h *Handler) createAgent(w http.ResponseWriter, r *http.Request) {
	var a agent.Agent
	if err := json.NewDecoder(r.Body).Decode(&a); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if a.Name == "" || a.Model == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name and model are required"})
		return
	}
	h.engine.Register(&a)
	if h.store != nil {
		if err := h.store.SaveAgent(r.Context(), &a); err != nil {
			h.logger.Warn("failed to persist agent", zap.String("id", a.ID), zap.Error(err))
		}
	}
	writeJSON(w, http.StatusCreated, a)
}

func (h *Handler) getAgent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	a, ok := h.engine.Get(id)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "agent not found"})
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (h *Handler) deleteAgent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !h.engine.Deregister(id) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "agent not found"})
		return
	}
	if h.store != nil {
		if err := h.store.DeleteAgent(r.Context(), id); err != nil {
			h.logger.Warn("failed to delete agent", zap.String("id", id), zap.Error(err))
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

type chatRequest struct {
	Message string          `json:"message"`
	History []agent.Message `json:"history,omitempty"`
}

func (h *Handler) chatWithAgent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if req.Message == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "message is required"})
		return
	}

	result, err := h.engine.RunChatTurn(r.Context(), id, req.History, req.Message)
	if err != nil {
		writeJSON(w, runErrorStatus(err), map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type taskRequest struct {
	Input string `json:"input"`
}

func (h *Handler) runTask(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req taskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if req.Input == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "input is required"})
		return
	}

	result, err := h.engine.RunTask(r.Context(), id, req.Input)
	if err != nil {
		writeJSON(w, runErrorStatus(err), map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func runErrorStatus(err error) int {
	switch {
	case errors.Is(err, agent.ErrAgentNotFound):
		return http.StatusNotFound
	case errors.Is(err, agent.ErrAgentInactive), errors.Is(err, agent.ErrWrongAgentKind):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

type providerInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func (h *Handler) listProviders(w http.ResponseWriter, r *http.Request) {
	providers := h.engine.Providers().ListProviders()
	infos := make([]providerInfo, 0, len(providers))
	for _, p := range providers {
		infos = append(infos, providerInfo{ID: p.ID(), Name: p.Name()})
	}
	writeJSON(w, http.StatusOK, infos)
}

type toolInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (h *Handler) listTools(w http.ResponseWriter, r *http.Request) {
	tools := h.engine.Tools().List()
	infos := make([]toolInfo, 0, len(tools))
	for _, t := range tools {
		infos = append(infos, toolInfo{Name: t.Name(), Description: t.Description()})
	}
	writeJSON(w, http.StatusOK, infos)
}

func (h *Handler) searchKnowledge(w http.ResponseWriter, r *http.Request) {
	if h.knowledge == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "knowledge base not configured"})
		return
	}
	var req rag.SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if req.Query == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "query is required"})
		return
	}
	resp, err := h.knowledge.Search(r.Context(), req)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

type indexRequest struct {
	OrgID     string            `json:"org_id"`
	ProjectID string            `json:"project_id"`
	Contents  []string          `json:"contents"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

func (h *Handler) indexKnowledge(w http.ResponseWriter, r *http.Request) {
	if h.knowledge == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "knowledge base not configured"})
		return
	}
	var req indexRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if len(req.Contents) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "contents is required"})
		return
	}
	ids, err := h.knowledge.IndexBatch(r.Context(), req.OrgID, req.ProjectID, req.Contents, req.Metadata)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"ids": ids})
}

func (h *Handler) deleteKnowledge(w http.ResponseWriter, r *http.Request) {
	if h.knowledge == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "knowledge base not configured"})
		return
	}
	id := chi.URLParam(r, "id")
	if err := h.knowledge.Delete(r.Context(), id); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
