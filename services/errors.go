package services

import "errors"

// Общие ошибки, используемые в разных сервисах и маппинге HTTP.
var (
	ErrNotFound = errors.New("requested resource not found")

	// Ошибки валидации и бизнес-правил
	ErrValidationFailed          = errors.New("validation failed")
	ErrRegistrationClosed        = errors.New("tournament registration is closed")
	ErrProfileIncomplete         = errors.New("register your in-game nickname before joining tournaments")
	ErrInvalidTeamSize           = errors.New("number of teammates does not match the tournament format")
	ErrDuplicateOrSelfTeammate   = errors.New("teammates must be distinct and must not include yourself")
	ErrUnknownTeammate           = errors.New("teammate is not a registered user")
	ErrTeammateProfileIncomplete = errors.New("teammate has not registered an in-game nickname")
	ErrNotSubscribed             = errors.New("user is not subscribed to this tournament")
	ErrInvalidNickname           = errors.New("nickname must be 3-16 characters of letters, digits or underscore")
	ErrInvalidImage              = errors.New("unsupported image content type")

	// Ошибки конфликтов
	ErrAlreadyJoined               = errors.New("user already joined this tournament")
	ErrTeammateAlreadyInTournament = errors.New("teammate is already taking part in this tournament")
	ErrUsernameConflict            = errors.New("username is already in use")

	// Ошибки аутентификации и авторизации
	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrInvalidToken         = errors.New("invalid or expired session token")
	ErrForbiddenOperation   = errors.New("operation not allowed for the current user")

	// Ошибки, специфичные для сущностей
	ErrUserNotFound             = errors.New("user not found")
	ErrTournamentNotFound       = errors.New("tournament not found")
	ErrMemoryNotFound           = errors.New("memory not found")
	ErrInvitationNotFound       = errors.New("no pending invitation for this user in the tournament")
	ErrLeaderboardEntryNotFound = errors.New("leaderboard entry not found")

	// Ошибки турниров
	ErrTournamentTitleRequired           = errors.New("tournament title is required")
	ErrTournamentInvalidFormat           = errors.New("tournament format must be solo, duo or trio")
	ErrTournamentDateRequired            = errors.New("tournament start date is required")
	ErrTournamentInvalidStatus           = errors.New("invalid tournament status provided")
	ErrTournamentInvalidStatusTransition = errors.New("invalid tournament status transition")
	ErrStorageNotConfigured              = errors.New("file storage is not configured")

	// Ошибки воспоминаний
	ErrMemoryTitleRequired      = errors.New("memory title is required")
	ErrMemoryInvalidVideoURL    = errors.New("video url must be an absolute http(s) url")
	ErrMemoryDescriptionTooLong = errors.New("memory description is too long")
)
