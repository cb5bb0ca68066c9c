package handlers

import (
	"net/http"

	"github.com/prostaff/match-ingest/scheduler"
	"github.com/prostaff/match-ingest/services"
)

type StatusHandler struct {
	gameService *services.GameService
	sched       *scheduler.Scheduler // nil — планировщик выключен
}

func NewStatusHandler(gameService *services.GameService, sched *scheduler.Scheduler) *StatusHandler {
	return &StatusHandler{gameService: gameService, sched: sched}
}

// Status — счётчики жизненного цикла записей и последние исходы свипов.
func (h *StatusHandler) Status(w http.ResponseWriter, r *http.Request) {
	counts, err := h.gameService.Status(r.Context())
	if err != nil {
		serverErrorResponse(w, r, err)
		return
	}

	response := jsonResponse{
		"games": counts,
	}
	if h.sched != nil {
		response["sweeps"] = h.sched.Status()
	}

	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *StatusHandler) Health(w http.ResponseWriter, r *http.Request) {
	if err := writeJSON(w, http.StatusOK, jsonResponse{"status": "ok"}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
