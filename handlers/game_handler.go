package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/prostaff/match-ingest/models"
	"github.com/prostaff/match-ingest/repositories"
	"github.com/prostaff/match-ingest/services"
)

type GameHandler struct {
	gameService *services.GameService
}

func NewGameHandler(gameService *services.GameService) *GameHandler {
	return &GameHandler{gameService: gameService}
}

// ListGames — страница записей с фильтрами ?league=, ?enriched=,
// ?limit=, ?offset=.
func (h *GameHandler) ListGames(w http.ResponseWriter, r *http.Request) {
	filter := repositories.ListGamesFilter{}

	if league := r.URL.Query().Get("league"); league != "" {
		filter.League = &league
	}
	if enrichedParam := r.URL.Query().Get("enriched"); enrichedParam != "" {
		enriched, err := strconv.ParseBool(enrichedParam)
		if err != nil {
			badRequestResponse(w, r, errors.New("enriched must be a boolean"))
			return
		}
		filter.Enriched = &enriched
	}
	if limitParam := r.URL.Query().Get("limit"); limitParam != "" {
		limit, err := strconv.Atoi(limitParam)
		if err != nil {
			badRequestResponse(w, r, errors.New("limit must be an integer"))
			return
		}
		filter.Limit = limit
	}
	if offsetParam := r.URL.Query().Get("offset"); offsetParam != "" {
		offset, err := strconv.Atoi(offsetParam)
		if err != nil {
			badRequestResponse(w, r, errors.New("offset must be an integer"))
			return
		}
		filter.Offset = offset
	}

	games, err := h.gameService.ListGames(r.Context(), filter)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	response := jsonResponse{
		"count": len(games),
		"games": games,
	}
	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// GetGame — одна запись по составному ключу из пути.
func (h *GameHandler) GetGame(w http.ResponseWriter, r *http.Request) {
	key, err := gameKeyFromRequest(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	game, err := h.gameService.GetGame(r.Context(), key)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"game": game}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *GameHandler) ListLeagues(w http.ResponseWriter, r *http.Request) {
	leagues := h.gameService.Leagues()

	response := jsonResponse{
		"count":   len(leagues),
		"leagues": leagues,
	}
	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func gameKeyFromRequest(r *http.Request) (models.GameKey, error) {
	matchID := chi.URLParam(r, "matchID")
	if matchID == "" {
		return models.GameKey{}, errors.New("matchID is required")
	}

	gameNumber, err := strconv.Atoi(chi.URLParam(r, "gameNumber"))
	if err != nil || gameNumber < 1 {
		return models.GameKey{}, errors.New("gameNumber must be a positive integer")
	}

	return models.GameKey{MatchID: matchID, GameNumber: gameNumber}, nil
}
