package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/hokushin/kendo-tournament/services"
)

type TournamentHandler struct {
	tournamentService services.TournamentService
}

func NewTournamentHandler(tournamentService services.TournamentService) *TournamentHandler {
	return &TournamentHandler{tournamentService: tournamentService}
}

func (h *TournamentHandler) CreateTournament(w http.ResponseWriter, r *http.Request) {
	var input services.CreateTournamentInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	tournament, err := h.tournamentService.CreateTournament(r.Context(), input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, jsonResponse{"tournament": tournament}, nil)
}

func (h *TournamentHandler) GetTournament(w http.ResponseWriter, r *http.Request) {
	tournament, err := h.tournamentService.GetTournament(r.Context(), chi.URLParam(r, "tournamentID"))
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, jsonResponse{"tournament": tournament}, nil)
}

func (h *TournamentHandler) ListTournaments(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	tournaments, err := h.tournamentService.ListTournaments(r.Context(), limit, offset)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, jsonResponse{"tournaments": tournaments}, nil)
}

func (h *TournamentHandler) UpdateTournament(w http.ResponseWriter, r *http.Request) {
	var input services.UpdateTournamentInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	tournament, err := h.tournamentService.UpdateTournament(r.Context(), chi.URLParam(r, "tournamentID"), input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, jsonResponse{"tournament": tournament}, nil)
}

func (h *TournamentHandler) DeleteTournament(w http.ResponseWriter, r *http.Request) {
	if err := h.tournamentService.DeleteTournament(r.Context(), chi.URLParam(r, "tournamentID")); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type signupRequest struct {
	PlayerID string `json:"player_id"`
}

func (h *TournamentHandler) AddPlayer(w http.ResponseWriter, r *http.Request) {
	var input signupRequest
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	tournament, err := h.tournamentService.AddPlayer(r.Context(), chi.URLParam(r, "tournamentID"), input.PlayerID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, jsonResponse{"tournament": tournament}, nil)
}

func (h *TournamentHandler) WithdrawPlayer(w http.ResponseWriter, r *http.Request) {
	err := h.tournamentService.WithdrawPlayer(r.Context(), chi.URLParam(r, "tournamentID"), chi.URLParam(r, "playerID"))
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *TournamentHandler) GetOrCreateSchedule(w http.ResponseWriter, r *http.Request) {
	matches, err := h.tournamentService.GetOrCreateSchedule(r.Context(), chi.URLParam(r, "tournamentID"))
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, jsonResponse{"matches": matches}, nil)
}
