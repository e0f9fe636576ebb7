// Package app implements application business logic for the formdesk service.
package app

import (
	"errors"

	"formdesk/internal/formdesk/domain/entities"
	"formdesk/internal/formdesk/ports/repositories"
)

// Ошибки уровня бизнес-логики.
var (
	ErrStore               = errors.New("store request failed")
	ErrDuplicateSubmission = errors.New("form already submitted")
	ErrRecordNotCached     = errors.New("record is not in the loaded page")
	ErrNotEditing          = errors.New("record is not being edited")
	ErrSession             = errors.New("session state unavailable")

	ErrUnknownField   = entities.ErrUnknownField
	ErrRecordNotFound = repositories.ErrRecordNotFound
)

// Сообщения журнала.
const (
	LogValidationFailed  = "record validation failed"
	LogInsertFailed      = "failed to insert record"
	LogRecordInserted    = "record inserted"
	LogTokenRotateFailed = "failed to rotate form token"
	LogFetchStarted      = "fetching records"
	LogFetchFailed       = "failed to fetch records"
	LogFetchStale        = "discarding stale fetch result"
	LogFetchAbandoned    = "previous fetch did not finish, fetching again"
	LogSessionDiscarded  = "discarding undecodable session"
	LogUpdateFailed      = "failed to update record"
	LogUpdateStale       = "discarding stale edit result"
	LogRecordUpdated     = "record updated"
)
