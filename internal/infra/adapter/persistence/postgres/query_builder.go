// Package postgres provides PostgreSQL implementations of repository interfaces.
package postgres

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"course-watch/internal/repository"
)

// uniqueViolation is the SQLSTATE raised by PostgreSQL for duplicate keys.
const uniqueViolation = "23505"

// buildInClause renders "column IN ($n, $n+1, ...)" for ids, numbering
// placeholders from firstParam. ids must not be empty.
func buildInClause(column string, ids []uuid.UUID, firstParam int) (clause string, args []interface{}) {
	placeholders := make([]string, len(ids))
	args = make([]interface{}, len(ids))
	for i, id := range ids {
		placeholders[i] = fmt.Sprintf("$%d", firstParam+i)
		args[i] = id
	}
	return fmt.Sprintf("%s IN (%s)", column, strings.Join(placeholders, ", ")), args
}

// translateError maps driver errors onto repository sentinels.
func translateError(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%s: %w (%s)", op, repository.ErrDuplicate, pgErr.ConstraintName)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// uniqueIDs drops duplicates while keeping first-seen order.
func uniqueIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
