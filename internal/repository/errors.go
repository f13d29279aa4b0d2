package repository

import (
	"database/sql"
	"errors"

	"github.com/lib/pq"
)

// pq error codes we translate into domain errors
const (
	uniqueViolation     = pq.ErrorCode("23505")
	foreignKeyViolation = pq.ErrorCode("23503")
	invalidTextRep      = pq.ErrorCode("22P02")
)

func pqCode(err error) pq.ErrorCode {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code
	}
	return ""
}

func isUniqueViolation(err error) bool {
	return pqCode(err) == uniqueViolation
}

// isMissingReference covers both a dangling foreign key and an id that is not a valid uuid
func isMissingReference(err error) bool {
	code := pqCode(err)
	return code == foreignKeyViolation || code == invalidTextRep
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
