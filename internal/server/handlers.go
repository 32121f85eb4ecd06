package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/halosight/presence-cli/internal/audit"
	"github.com/halosight/presence-cli/internal/cache"
	"github.com/halosight/presence-cli/internal/metrics"
	"github.com/halosight/presence-cli/internal/model"
	"github.com/halosight/presence-cli/internal/store"
)

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload) //nolint:errcheck
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}

// respondStoreError maps a store failure onto 404 or 500.
func respondStoreError(w http.ResponseWriter, err error, what string) {
	if eris.Is(err, store.ErrNotFound) {
		respondError(w, http.StatusNotFound, what+" not found")
		return
	}
	zap.L().Error("store request failed", zap.String("what", what), zap.Error(err))
	respondError(w, http.StatusInternalServerError, "internal error")
}

func queryInt(r *http.Request, name string) int {
	n, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListEntities(w http.ResponseWriter, r *http.Request) {
	kind := model.EntityKind(r.URL.Query().Get("kind"))
	if kind != "" && !kind.Valid() {
		respondError(w, http.StatusBadRequest, "kind must be person or company")
		return
	}

	entities, err := s.store.ListEntities(r.Context(), kind, queryInt(r, "limit"), queryInt(r, "offset"))
	if err != nil {
		respondStoreError(w, err, "entities")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"entities": entities,
		"count":    len(entities),
	})
}

func (s *Server) handleCreateEntity(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Kind     model.EntityKind `json:"kind"`
		Name     string           `json:"name"`
		Industry string           `json:"industry"`
		Websites []string         `json:"websites"`
		Aliases  []string         `json:"aliases"`
	}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		respondError(w, http.StatusBadRequest, "name is required")
		return
	}
	if !req.Kind.Valid() {
		respondError(w, http.StatusBadRequest, "kind must be person or company")
		return
	}

	entity, err := s.store.CreateEntity(r.Context(), model.Entity{
		Kind:     req.Kind,
		Name:     req.Name,
		Industry: req.Industry,
		Websites: req.Websites,
		Aliases:  req.Aliases,
	})
	if err != nil {
		respondStoreError(w, err, "entity")
		return
	}

	zap.L().Info("entity created",
		zap.String("entity_id", entity.ID),
		zap.String("name", entity.Name),
	)
	respondJSON(w, http.StatusCreated, entity)
}

func (s *Server) handleListAudits(w http.ResponseWriter, r *http.Request) {
	status := model.AuditStatus(r.URL.Query().Get("status"))
	switch status {
	case "", model.AuditStatusQueued, model.AuditStatusRunning, model.AuditStatusComplete, model.AuditStatusFailed:
	default:
		respondError(w, http.StatusBadRequest, "status must be queued, running, complete, or failed")
		return
	}

	audits, err := s.store.ListAudits(r.Context(), store.AuditFilter{
		EntityID: r.URL.Query().Get("entity_id"),
		Status:   status,
		Limit:    queryInt(r, "limit"),
		Offset:   queryInt(r, "offset"),
	})
	if err != nil {
		respondStoreError(w, err, "audits")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"audits": audits,
		"count":  len(audits),
	})
}

func (s *Server) handleCreateAudit(w http.ResponseWriter, r *http.Request) {
	var req struct {
		EntityID              string   `json:"entity_id"`
		Platforms             []string `json:"platforms"`
		IncludeSearchVariants *bool    `json:"include_search_variants"`
	}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.EntityID == "" {
		respondError(w, http.StatusBadRequest, "entity_id is required")
		return
	}

	entity, err := s.store.GetEntity(r.Context(), req.EntityID)
	if err != nil {
		respondStoreError(w, err, "entity")
		return
	}

	platforms := req.Platforms
	if len(platforms) == 0 {
		platforms = s.auditCfg.Platforms
	}
	for _, p := range platforms {
		if !model.KnownPlatform(p) {
			respondError(w, http.StatusBadRequest, "unknown platform "+strconv.Quote(p))
			return
		}
	}
	includeSearch := s.auditCfg.IncludeSearchVariants
	if req.IncludeSearchVariants != nil {
		includeSearch = *req.IncludeSearchVariants
	}

	aud, err := s.store.CreateAudit(r.Context(), entity.ID, audit.ExpandPlatforms(platforms, includeSearch))
	if err != nil {
		respondStoreError(w, err, "audit")
		return
	}

	if s.enqueuer != nil {
		if _, err := s.enqueuer.Enqueue(r.Context(), aud.ID); err != nil {
			zap.L().Error("enqueue audit failed",
				zap.String("audit_id", aud.ID),
				zap.Error(err),
			)
			// The audit row stays queued; it can be run from the CLI.
			respondError(w, http.StatusBadGateway, "audit created but could not be enqueued")
			return
		}
	}

	zap.L().Info("audit accepted",
		zap.String("audit_id", aud.ID),
		zap.String("entity_id", entity.ID),
		zap.Int("platforms", len(aud.Platforms)),
	)
	respondJSON(w, http.StatusAccepted, aud)
}

func (s *Server) handleGetAudit(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	aud, err := s.store.GetAudit(r.Context(), id)
	if err != nil {
		respondStoreError(w, err, "audit")
		return
	}
	records, err := s.store.ListQueryRecords(r.Context(), id)
	if err != nil {
		respondStoreError(w, err, "query records")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"audit":   aud,
		"records": records,
	})
}

// handleGetAnalytics serves the analytics result for an audit. Lookup
// order is cache, then store; a completed audit with no stored result is
// scored from its records on the spot. The cache key fingerprints the
// record set, so entries go stale by becoming unreachable.
func (s *Server) handleGetAnalytics(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ctx := r.Context()

	aud, err := s.store.GetAudit(ctx, id)
	if err != nil {
		respondStoreError(w, err, "audit")
		return
	}
	records, err := s.store.ListQueryRecords(ctx, id)
	if err != nil {
		respondStoreError(w, err, "query records")
		return
	}

	key := cache.Key(aud.ID, records)
	if s.cache != nil {
		result, ok, err := s.cache.Get(ctx, key)
		if err != nil {
			zap.L().Warn("analytics cache read failed", zap.String("audit_id", aud.ID), zap.Error(err))
		}
		if ok {
			metrics.CacheHits.Inc()
			respondJSON(w, http.StatusOK, result)
			return
		}
		metrics.CacheMisses.Inc()
	}

	result, err := s.store.GetAnalytics(ctx, aud.ID)
	if err != nil {
		respondStoreError(w, err, "analytics")
		return
	}
	if result == nil {
		if aud.Status != model.AuditStatusComplete {
			respondError(w, http.StatusNotFound, "analytics not ready: audit is "+string(aud.Status))
			return
		}

		// Complete audit with no stored result. Score it from the
		// records and persist so the next reader skips this path.
		entity, err := s.store.GetEntity(ctx, aud.EntityID)
		if err != nil {
			respondStoreError(w, err, "entity")
			return
		}
		result = s.analyzer.Analyze(records, entity.Kind, entity.Industry)
		if err := s.store.SaveAnalytics(ctx, aud.ID, result); err != nil {
			zap.L().Warn("save recomputed analytics failed", zap.String("audit_id", aud.ID), zap.Error(err))
		}
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, result); err != nil {
			zap.L().Warn("analytics cache write failed", zap.String("audit_id", aud.ID), zap.Error(err))
		}
	}
	respondJSON(w, http.StatusOK, result)
}
