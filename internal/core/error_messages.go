package core

// error_messages.go maps technical errors to user-facing messages with a
// support code.
//
// Codes:
//
//	FILE001 file too large        FILE002 wrong file type
//	FILE003 no file provided      FILE004 no data rows
//	VAL001  missing columns       VAL002  rows failed validation
//	DB001   duplicate value       DB002   foreign key
//	DB003   database unreachable  DB004   timeout
//	IMP001  too many imports      IMP002  batch not found
//	IMP003  request cancelled     RATE001 rate limited
//	ERR000  anything else
//
// Known sentinel and typed errors are matched first with errors.Is and
// errors.As. Remaining errors fall back to case-insensitive substring
// patterns; the first pattern that matches wins.

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/JonMunkholm/staffimport/internal/delimited"
	"github.com/jackc/pgx/v5/pgconn"
)

// UserMessage is an error as shown to a user.
type UserMessage struct {
	Message string // what happened
	Action  string // what to do about it
	Code    string // support reference
}

var (
	msgFileTooLarge = UserMessage{"File exceeds the maximum upload size", "Split the file into smaller files", "FILE001"}
	msgWrongType    = UserMessage{"Please select a CSV file", "Save the sheet as .csv and upload it again", "FILE002"}
	msgNoFile       = UserMessage{"No file was selected", "Choose a CSV file to import", "FILE003"}
	msgNoData       = UserMessage{"The CSV file contains no data rows", "Add a header line and at least one engineer row", "FILE004"}
	msgMissingCols  = UserMessage{"Required columns are missing", "Download the template and match its header exactly", "VAL001"}
	msgRowsInvalid  = UserMessage{"Some rows failed validation", "Fix every listed row, then import again", "VAL002"}
	msgDuplicate    = UserMessage{"A duplicate value was found", "Remove duplicate entries from the file", "DB001"}
	msgForeignKey   = UserMessage{"Referenced record does not exist", "Check that related records exist first", "DB002"}
	msgDBDown       = UserMessage{"Unable to reach the database", "Please try again in a few moments", "DB003"}
	msgTimeout      = UserMessage{"The operation timed out", "Try a smaller file or try again later", "DB004"}
	msgBusy         = UserMessage{"Too many imports are running", "Please wait a moment and try again", "IMP001"}
	msgNoBatch      = UserMessage{"Import batch not found", "Refresh the import history and try again", "IMP002"}
	msgCancelled    = UserMessage{"The request was cancelled", "Please try again", "IMP003"}
	msgRateLimited  = UserMessage{"Too many requests", "Please wait a moment before trying again", "RATE001"}
	defaultMessage  = UserMessage{"An unexpected error occurred", "Please try again or contact support", "ERR000"}
)

// errorPattern maps a lowercase substring to a message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns is ordered specific-first.
var errorPatterns = []errorPattern{
	{"file too large", msgFileTooLarge},
	{"request body too large", msgFileTooLarge},
	{"wrong file type", msgWrongType},
	{"no file provided", msgNoFile},
	{"no data rows", msgNoData},
	{"missing required columns", msgMissingCols},
	{"duplicate key", msgDuplicate},
	{"violates unique", msgDuplicate},
	{"violates foreign key", msgForeignKey},
	{"connection refused", msgDBDown},
	{"connection reset", msgDBDown},
	{"rate limit", msgRateLimited},
	{"timeout", msgTimeout},
}

// Postgres SQLSTATE codes handled explicitly.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// MapError converts err to a UserMessage. A nil error maps to the zero value.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	switch {
	case errors.Is(err, ErrRowsInvalid):
		return msgRowsInvalid
	case errors.Is(err, ErrWrongFileType):
		return msgWrongType
	case errors.Is(err, ErrFileTooLarge):
		return msgFileTooLarge
	case errors.Is(err, delimited.ErrNoDataRows):
		return msgNoData
	case errors.Is(err, delimited.ErrMissingColumns):
		return msgMissingCols
	case errors.Is(err, ErrTooManyImports):
		return msgBusy
	case errors.Is(err, ErrBatchNotFound):
		return msgNoBatch
	case errors.Is(err, context.Canceled):
		return msgCancelled
	case errors.Is(err, context.DeadlineExceeded):
		return msgTimeout
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return msgDuplicate
		case pgForeignKeyViolation:
			return msgForeignKey
		}
	}

	text := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(text, ep.pattern) {
			return ep.msg
		}
	}
	return defaultMessage
}

// FormatUserError renders err as "Message (Code: XXX). Action".
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to something more specific than ERR000.
func IsUserFacing(err error) bool {
	return err != nil && MapError(err).Code != defaultMessage.Code
}
