package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/prostaff/match-ingest/services"
)

// AdminHandler — ручные триггеры конвейера. Свипы выполняются
// синхронно в запросе, поверх той же сервисной логики, что и у
// планировщика.
type AdminHandler struct {
	syncService       *services.SyncService
	enrichmentService *services.EnrichmentService
	gameService       *services.GameService

	leagues         []string
	syncLimit       int
	enrichBatchSize int
}

func NewAdminHandler(
	syncService *services.SyncService,
	enrichmentService *services.EnrichmentService,
	gameService *services.GameService,
	leagues []string,
	syncLimit int,
	enrichBatchSize int,
) *AdminHandler {
	return &AdminHandler{
		syncService:       syncService,
		enrichmentService: enrichmentService,
		gameService:       gameService,
		leagues:           leagues,
		syncLimit:         syncLimit,
		enrichBatchSize:   enrichBatchSize,
	}
}

// TriggerSync запускает sync-свип: по одной лиге из тела запроса либо
// по всем настроенным, если тело пустое.
func (h *AdminHandler) TriggerSync(w http.ResponseWriter, r *http.Request) {
	var input struct {
		League string `json:"league"`
		Limit  int    `json:"limit"`
	}

	if err := readJSON(w, r, &input); err != nil {
		if !isEmptyBody(err) {
			badRequestResponse(w, r, err)
			return
		}
	}

	limit := input.Limit
	if limit <= 0 {
		limit = h.syncLimit
	}

	if input.League != "" {
		result, err := h.syncService.RunSync(r.Context(), input.League, limit)
		if err != nil {
			mapServiceErrorToHTTP(w, r, err)
			return
		}
		if err := writeJSON(w, http.StatusOK, jsonResponse{"results": []services.SyncResult{*result}}, nil); err != nil {
			serverErrorResponse(w, r, err)
		}
		return
	}

	results, err := h.syncService.RunAll(r.Context(), h.leagues, limit)
	if err != nil {
		// Частичный успех: оператору важны и результаты, и сбои.
		response := jsonResponse{"results": results, "error": err.Error()}
		if werr := writeJSON(w, http.StatusBadGateway, response, nil); werr != nil {
			serverErrorResponse(w, r, werr)
		}
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"results": results}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// TriggerEnrich запускает enrichment-свип на batch_size записей.
func (h *AdminHandler) TriggerEnrich(w http.ResponseWriter, r *http.Request) {
	var input struct {
		BatchSize int `json:"batch_size"`
	}

	if err := readJSON(w, r, &input); err != nil {
		if !isEmptyBody(err) {
			badRequestResponse(w, r, err)
			return
		}
	}

	batchSize := input.BatchSize
	if batchSize <= 0 {
		batchSize = h.enrichBatchSize
	}

	result, err := h.enrichmentService.RunEnrichment(r.Context(), batchSize)
	if err != nil {
		// Частичный результат прерванного свипа всё равно полезен оператору.
		if result != nil {
			response := jsonResponse{"result": result, "error": err.Error()}
			if werr := writeJSON(w, http.StatusBadGateway, response, nil); werr != nil {
				serverErrorResponse(w, r, werr)
			}
			return
		}
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"result": result}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ResetEnrichment возвращает карантинную запись в очередь обогащения.
func (h *AdminHandler) ResetEnrichment(w http.ResponseWriter, r *http.Request) {
	key, err := gameKeyFromRequest(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.gameService.ResetEnrichment(r.Context(), key); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"message": "enrichment attempts reset"}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// isEmptyBody распознаёт отсутствующее тело запроса: для триггеров оно
// допустимо и означает значения по умолчанию.
func isEmptyBody(err error) bool {
	return err != nil && (errors.Is(err, io.EOF) || err.Error() == "body must not be empty")
}
