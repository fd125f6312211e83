package utils

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// ToNullEnum converts an optional string-backed enum to a pgtype.Text.
func ToNullEnum[T ~string](v *T) pgtype.Text {
	if v == nil {
		return pgtype.Text{Valid: false}
	}
	return pgtype.Text{String: string(*v), Valid: true}
}

// FromNullEnum converts a pgtype.Text back to an optional enum.
func FromNullEnum[T ~string](t pgtype.Text) *T {
	if !t.Valid {
		return nil
	}
	v := T(t.String)
	return &v
}

// ToUUID converts a domain UUID to a non-null pgtype.UUID.
func ToUUID(id uuid.UUID) pgtype.UUID {
	return pgtype.UUID{Bytes: id, Valid: true}
}

// ToNullUUID converts an optional UUID to a pgtype.UUID.
func ToNullUUID(id *uuid.UUID) pgtype.UUID {
	if id == nil {
		return pgtype.UUID{Valid: false}
	}
	return pgtype.UUID{Bytes: *id, Valid: true}
}

// FromNullUUID converts a pgtype.UUID to an optional UUID.
func FromNullUUID(id pgtype.UUID) *uuid.UUID {
	if !id.Valid {
		return nil
	}
	v := uuid.UUID(id.Bytes)
	return &v
}

// ToNullTime converts an optional time to a pgtype.Timestamptz.
func ToNullTime(t *time.Time) pgtype.Timestamptz {
	if t == nil {
		return pgtype.Timestamptz{Valid: false}
	}
	return pgtype.Timestamptz{Time: *t, Valid: true}
}

// FromNullTime converts a pgtype.Timestamptz to an optional time.
func FromNullTime(t pgtype.Timestamptz) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time.UTC()
	return &v
}
