package repository

import (
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

func uuidFromString(s string) pgtype.UUID {
	var id pgtype.UUID
	_ = id.Scan(s)
	return id
}

func tsFrom(t time.Time) pgtype.Timestamptz {
	return pgtype.Timestamptz{Time: t, Valid: true}
}
