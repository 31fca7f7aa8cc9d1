package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hokushin/kendo-tournament/models"
	"github.com/hokushin/kendo-tournament/services"
)

type MatchHandler struct {
	matchService services.MatchService
}

func NewMatchHandler(matchService services.MatchService) *MatchHandler {
	return &MatchHandler{matchService: matchService}
}

type createMatchRequest struct {
	TournamentID string           `json:"tournament_id"`
	PlayerIDs    []string         `json:"player_ids"`
	MatchType    models.MatchType `json:"match_type"`
	Round        int              `json:"round"`
}

func (h *MatchHandler) CreateMatch(w http.ResponseWriter, r *http.Request) {
	var input createMatchRequest
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	match, err := h.matchService.CreateMatch(r.Context(), input.TournamentID, input.PlayerIDs, input.MatchType, input.Round)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, jsonResponse{"match": match}, nil)
}

func (h *MatchHandler) GetMatch(w http.ResponseWriter, r *http.Request) {
	match, err := h.matchService.GetMatch(r.Context(), chi.URLParam(r, "matchID"))
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, jsonResponse{"match": match}, nil)
}

func (h *MatchHandler) DeleteMatch(w http.ResponseWriter, r *http.Request) {
	if err := h.matchService.DeleteMatch(r.Context(), chi.URLParam(r, "matchID")); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *MatchHandler) StartTimer(w http.ResponseWriter, r *http.Request) {
	match, err := h.matchService.StartTimer(r.Context(), chi.URLParam(r, "matchID"))
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, jsonResponse{"match": match}, nil)
}

func (h *MatchHandler) StopTimer(w http.ResponseWriter, r *http.Request) {
	match, err := h.matchService.StopTimer(r.Context(), chi.URLParam(r, "matchID"))
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, jsonResponse{"match": match}, nil)
}

type addPointRequest struct {
	PointType models.PointType   `json:"point_type"`
	Color     models.PlayerColor `json:"color"`
}

func (h *MatchHandler) AddPoint(w http.ResponseWriter, r *http.Request) {
	var input addPointRequest
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	match, err := h.matchService.AddPoint(r.Context(), chi.URLParam(r, "matchID"), input.PointType, input.Color)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, jsonResponse{"match": match}, nil)
}

func (h *MatchHandler) CheckForTie(w http.ResponseWriter, r *http.Request) {
	match, err := h.matchService.CheckForTie(r.Context(), chi.URLParam(r, "matchID"))
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, jsonResponse{"match": match}, nil)
}

func (h *MatchHandler) DeleteRecentPoint(w http.ResponseWriter, r *http.Request) {
	match, err := h.matchService.DeleteRecentPoint(r.Context(), chi.URLParam(r, "matchID"))
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, jsonResponse{"match": match}, nil)
}

type modifyPointRequest struct {
	PointType models.PointType `json:"point_type"`
}

func (h *MatchHandler) ModifyRecentPoint(w http.ResponseWriter, r *http.Request) {
	var input modifyPointRequest
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	match, err := h.matchService.ModifyRecentPoint(r.Context(), chi.URLParam(r, "matchID"), input.PointType)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, jsonResponse{"match": match}, nil)
}

type roleRequest struct {
	Role   models.MatchRole `json:"role"`
	UserID string           `json:"user_id"`
}

func (h *MatchHandler) AddRole(w http.ResponseWriter, r *http.Request) {
	var input roleRequest
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	match, err := h.matchService.AddRole(r.Context(), chi.URLParam(r, "matchID"), input.Role, input.UserID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, jsonResponse{"match": match}, nil)
}

func (h *MatchHandler) RemoveRole(w http.ResponseWriter, r *http.Request) {
	var input roleRequest
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	match, err := h.matchService.RemoveRole(r.Context(), chi.URLParam(r, "matchID"), input.Role, input.UserID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, jsonResponse{"match": match}, nil)
}

func (h *MatchHandler) ResetMatch(w http.ResponseWriter, r *http.Request) {
	match, err := h.matchService.ResetMatch(r.Context(), chi.URLParam(r, "matchID"))
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, jsonResponse{"match": match}, nil)
}

func (h *MatchHandler) ResetRoles(w http.ResponseWriter, r *http.Request) {
	match, err := h.matchService.ResetRoles(r.Context(), chi.URLParam(r, "matchID"))
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, jsonResponse{"match": match}, nil)
}
