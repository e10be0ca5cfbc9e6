package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"othello/agent"
	"othello/communication"
	"othello/game"
	"othello/searcher"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"
)

// Defaults fill in search parameters a request leaves out.
type Defaults struct {
	Simulations int
	Exploration float64
	Temperature float64
}

// Server exposes a searcher over HTTP for positions of one board size.
type Server struct {
	searcher agent.Searcher
	size     int
	defaults Defaults
	router   chi.Router
}

func New(s agent.Searcher, size int, defaults Defaults) *Server {
	srv := &Server{searcher: s, size: size, defaults: defaults}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/api/ping", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	})
	r.Post("/api/valid-moves", srv.handleValidMoves)
	r.Post("/api/probabilities", srv.handleProbabilities)
	r.Post("/api/move", srv.handleMove)

	srv.router = r
	return srv
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on addr until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	serverErrCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrCh <- err
		}
		close(serverErrCh)
	}()

	log.Info().Msgf("agent server listening on %s", addr)
	var runErr error
	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	case err, ok := <-serverErrCh:
		if ok {
			runErr = fmt.Errorf("agent server failed: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Warn().Err(err).Msg("graceful shutdown failed")
		if closeErr := server.Close(); closeErr != nil && !errors.Is(closeErr, http.ErrServerClosed) {
			log.Warn().Err(closeErr).Msg("forced close failed")
		}
	}
	return runErr
}

func (s *Server) handleValidMoves(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decode(w, r)
	if !ok {
		return
	}

	mask := game.ValidMoves(req.Position)
	actions := make([]int, 0, len(mask))
	for a, legal := range mask {
		if legal {
			actions = append(actions, a)
		}
	}
	writeJSON(w, http.StatusOK, communication.ValidMovesResponse{Mask: mask, Actions: actions})
}

func (s *Server) handleProbabilities(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decode(w, r)
	if !ok {
		return
	}

	simulations, exploration, temperature := s.params(req)
	probabilities, err := s.searcher.ComputeActionProbabilities(r.Context(), req.Position, simulations, exploration, temperature)
	if err != nil {
		writeError(w, err)
		return
	}
	metric := s.searcher.LastSearch()
	writeJSON(w, http.StatusOK, communication.ProbabilitiesResponse{
		Probabilities: probabilities,
		Playouts:      metric.Playouts,
		Cancelled:     metric.IsCancelled,
	})
}

// handleMove plays the most visited action and returns the next position.
func (s *Server) handleMove(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decode(w, r)
	if !ok {
		return
	}

	simulations, exploration, _ := s.params(req)
	player := agent.NewEvaluationAgent(s.searcher, agent.Budget{Simulations: simulations, Exploration: exploration})
	action, _, err := player.FindMove(r.Context(), req.Position)
	if err != nil {
		writeError(w, err)
		return
	}
	next, err := game.ApplyMove(req.Position, action)
	if err != nil {
		writeError(w, err)
		return
	}

	row, col := action.Cell(s.size)
	resp := communication.MoveResponse{
		Action:   int(action),
		Pass:     action.IsPass(s.size),
		Position: next,
		Outcome:  game.OutcomeFor(next.Board, req.Position.Player).String(),
		Score:    game.ScoreDifferential(next.Board, req.Position.Player),
	}
	if !resp.Pass {
		resp.Row, resp.Col = row, col
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request) (communication.SearchRequest, bool) {
	var req communication.SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, communication.ErrorResponse{Error: "invalid payload: " + err.Error()})
		return req, false
	}
	if req.Position.Size() != s.size {
		writeJSON(w, http.StatusBadRequest, communication.ErrorResponse{
			Error: fmt.Sprintf("position must be %dx%d", s.size, s.size),
		})
		return req, false
	}
	return req, true
}

func (s *Server) params(req communication.SearchRequest) (int, float64, float64) {
	simulations, exploration, temperature := s.defaults.Simulations, s.defaults.Exploration, s.defaults.Temperature
	if req.Simulations != nil {
		simulations = *req.Simulations
	}
	if req.Exploration != nil {
		exploration = *req.Exploration
	}
	if req.Temperature != nil {
		temperature = *req.Temperature
	}
	return simulations, exploration, temperature
}

func writeError(w http.ResponseWriter, err error) {
	var evalErr *searcher.EvaluationError
	var illegal *game.IllegalActionError
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, searcher.ErrInvalidArgument), errors.As(err, &illegal):
		status = http.StatusBadRequest
	case errors.As(err, &evalErr):
		status = http.StatusBadGateway
		log.Error().Err(err).Msg("evaluation failed")
	default:
		log.Error().Err(err).Msg("request failed")
	}
	writeJSON(w, status, communication.ErrorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
