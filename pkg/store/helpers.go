package store

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/rpapostolis/agentic-workflow-evals-sub000/pkg/evalerrors"
)

// isUniqueViolation reports whether err came from a UNIQUE or PRIMARY KEY
// constraint failure. go-sqlite3 surfaces these as plain error strings
// rather than a typed error, so this matches on text the driver is known
// to produce.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "primary key constraint")
}

// requireRowsAffected turns a zero-rows-affected result from an
// UPDATE/DELETE into evalerrors.ErrNotFound, identifying the row by kind and id.
func requireRowsAffected(res sql.Result, kind, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", kind, id, evalerrors.ErrNotFound)
	}
	return nil
}
