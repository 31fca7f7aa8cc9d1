package services

import "errors"

// Shared service errors, mapped onto HTTP statuses by the handler layer.
var (
	// Missing resources
	ErrNotFound           = errors.New("requested resource not found")
	ErrMatchNotFound      = errors.New("match not found")
	ErrTournamentNotFound = errors.New("tournament not found")
	ErrUserNotFound       = errors.New("user not found")

	// Invalid state / business rules
	ErrMatchFinished       = errors.New("finished matches cannot be edited")
	ErrTimerAlreadyStarted = errors.New("match timer is already running")
	ErrTimerNotStarted     = errors.New("match timer has not been started")
	ErrMatchAlreadyStarted = errors.New("match has already started")
	ErrNoPointsToRemove    = errors.New("match has no points to remove")
	ErrNoPlayersInMatch    = errors.New("match has no players")
	ErrColorNotInMatch     = errors.New("no match player holds the given color")
	ErrInvalidPointType    = errors.New("invalid point type")
	ErrInvalidRole         = errors.New("invalid match role")
	ErrAlreadySignedUp     = errors.New("player is already signed up for this tournament")
	ErrTournamentFull      = errors.New("tournament registration is full")
	ErrTournamentStarted   = errors.New("tournament has already started")
	ErrPlayerNotRegistered = errors.New("player is not registered for this tournament")
	ErrInvalidFormat       = errors.New("invalid tournament format")

	// Configuration errors: fatal, not user-recoverable. They block the
	// operation that exposed them instead of being retried.
	ErrNotEnoughPlayers           = errors.New("at least 2 players are required")
	ErrMissingPlayoffQuota        = errors.New("preliminary playoff tournament is missing players to playoffs per group")
	ErrInvalidPlayoffQuota        = errors.New("players to playoffs per group must be at least 1")
	ErrMissingGroupSizePreference = errors.New("preliminary playoff tournament is missing group size preference")
)
