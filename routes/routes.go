package routes

import (
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/hokushin/kendo-tournament/handlers"
	"github.com/hokushin/kendo-tournament/middleware"
	"github.com/hokushin/kendo-tournament/models"
)

func InitRoutes(
	jwtSecret string,
	tournamentHandler *handlers.TournamentHandler,
	matchHandler *handlers.MatchHandler,
	wsHandler *handlers.WebSocketHandler,
) *chi.Mux {
	router := chi.NewRouter()

	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	authenticated := middleware.Authenticate(jwtSecret)
	refereeOnly := middleware.Authorize(models.RoleAdmin, models.RoleReferee)

	router.Route("/tournaments", func(r chi.Router) {
		r.Get("/", tournamentHandler.ListTournaments)
		r.Get("/{tournamentID}", tournamentHandler.GetTournament)

		r.Group(func(r chi.Router) {
			r.Use(authenticated)

			r.Post("/{tournamentID}/players", tournamentHandler.AddPlayer)
			r.Delete("/{tournamentID}/players/{playerID}", tournamentHandler.WithdrawPlayer)
		})

		r.Group(func(r chi.Router) {
			r.Use(authenticated)
			r.Use(refereeOnly)

			r.Post("/", tournamentHandler.CreateTournament)
			r.Put("/{tournamentID}", tournamentHandler.UpdateTournament)
			r.Delete("/{tournamentID}", tournamentHandler.DeleteTournament)
			r.Post("/{tournamentID}/schedule", tournamentHandler.GetOrCreateSchedule)
		})
	})

	router.Route("/matches", func(r chi.Router) {
		r.Get("/{matchID}", matchHandler.GetMatch)

		r.Group(func(r chi.Router) {
			r.Use(authenticated)
			r.Use(refereeOnly)

			r.Post("/", matchHandler.CreateMatch)
			r.Delete("/{matchID}", matchHandler.DeleteMatch)

			r.Post("/{matchID}/timer/start", matchHandler.StartTimer)
			r.Post("/{matchID}/timer/stop", matchHandler.StopTimer)

			r.Post("/{matchID}/points", matchHandler.AddPoint)
			r.Delete("/{matchID}/points/recent", matchHandler.DeleteRecentPoint)
			r.Put("/{matchID}/points/recent", matchHandler.ModifyRecentPoint)
			r.Post("/{matchID}/tie-check", matchHandler.CheckForTie)

			r.Post("/{matchID}/roles", matchHandler.AddRole)
			r.Delete("/{matchID}/roles", matchHandler.RemoveRole)
			r.Delete("/{matchID}/roles/all", matchHandler.ResetRoles)

			r.Post("/{matchID}/reset", matchHandler.ResetMatch)
		})
	})

	router.Get("/ws/tournaments/{tournamentID}", wsHandler.ServeTournamentWs)
	router.Get("/ws/matches/{matchID}", wsHandler.ServeMatchWs)

	return router
}
