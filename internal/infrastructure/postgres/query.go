package postgres

import (
	"strings"

	"github.com/google/uuid"

	"github.com/oksasatya/student-store/internal/domain/errs"
)

// parseID normalizes a primary key. Ids that are not UUIDs cannot exist in
// the table and are reported as ErrNotFound.
func parseID(id string) (string, error) {
	u, err := uuid.Parse(id)
	if err != nil {
		return "", errs.ErrNotFound
	}
	return u.String(), nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern builds an ILIKE pattern matching q literally as a substring.
// Queries using it must declare ESCAPE '\'.
func containsPattern(q string) string {
	return "%" + likeEscaper.Replace(q) + "%"
}
