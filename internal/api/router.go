package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/choreo-core/internal/slots"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/status", s.handleStatus)

		r.Route("/slots", func(r chi.Router) {
			r.Get("/", s.handleListSlots)
			r.Put("/", s.handleReplaceSlots)
		})

		r.Post("/program", s.handleProgram)
		r.Get("/runs", s.handleListRuns)
		r.Get("/ws", s.handleWebSocket)
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.robot.Status())
}

func (s *Server) handleListSlots(w http.ResponseWriter, r *http.Request) {
	list, err := s.slots.List(r.Context())
	if err != nil {
		s.logger.Error("listing slots failed", "error", err)
		writeInternalError(w, "failed to list slots")
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleReplaceSlots(w http.ResponseWriter, r *http.Request) {
	var list []slots.Slot
	if err := json.NewDecoder(r.Body).Decode(&list); err != nil {
		writeBadRequest(w, "invalid JSON body: expected an array of slots")
		return
	}

	if err := s.slots.Replace(r.Context(), list); err != nil {
		if errors.Is(err, slots.ErrInvalidSlots) {
			writeError(w, http.StatusBadRequest, ErrCodeValidation, err.Error())
			return
		}
		s.logger.Error("replacing slots failed", "error", err)
		writeInternalError(w, "failed to save slots")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "count": len(list)})
}

// programRequest is the body of POST /program. Exactly one of Program or
// Stop is expected; Stop wins if both are set.
type programRequest struct {
	Program *string `json:"program"`
	Stop    bool    `json:"stop"`
}

func (s *Server) handleProgram(w http.ResponseWriter, r *http.Request) {
	var req programRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	switch {
	case req.Stop:
		s.robot.HandleStop()
	case req.Program != nil:
		if err := s.robot.HandleRun(r.Context(), []byte(*req.Program)); err != nil {
			writeError(w, http.StatusUnprocessableEntity, ErrCodeScriptError, err.Error())
			return
		}
	default:
		writeBadRequest(w, `body must contain "program" or "stop"`)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeBadRequest(w, "limit must be a positive integer")
			return
		}
		limit = n
	}

	runs, err := s.history.Recent(r.Context(), limit)
	if err != nil {
		s.logger.Error("listing runs failed", "error", err)
		writeInternalError(w, "failed to list runs")
		return
	}
	writeJSON(w, http.StatusOK, runs)
}
