package postgres

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

func validUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}

// nullJSON passes an empty document as NULL so jsonb columns stay clean.
func nullJSON(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}
