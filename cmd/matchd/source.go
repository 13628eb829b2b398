package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"kindred/internal/identity"
	"kindred/pkg/domain"
)

// registrySource streams patient identities out of the registry table. The
// registry is owned upstream; this source only ever reads it.
type registrySource struct {
	db *sql.DB
	// since restricts the stream to records touched after the given time.
	// Zero means a full scan.
	since time.Time
}

func (s *registrySource) Each(ctx context.Context, fn func(identity.PatientIdentity) error) error {
	query := `
		SELECT id, display_name,
		       COALESCE(date_of_birth, '0001-01-01'::timestamptz),
		       COALESCE(phone, ''), COALESCE(email, '')
		FROM patient_identities`
	var args []any
	if !s.since.IsZero() {
		query += ` WHERE updated_at > $1`
		args = append(args, s.since)
	}
	query += ` ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("query patient identities: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			p     identity.PatientIdentity
			rawID string
		)
		if err := rows.Scan(&rawID, &p.DisplayName, &p.DateOfBirth, &p.Phone, &p.Email); err != nil {
			return fmt.Errorf("scan patient identity: %w", err)
		}
		id, err := domain.ParsePatientID(rawID)
		if err != nil {
			return fmt.Errorf("registry record id %q: %w", rawID, err)
		}
		p.ID = id
		// The COALESCE sentinel means the registry has no birth date.
		if p.DateOfBirth.Year() == 1 {
			p.DateOfBirth = time.Time{}
		}
		if err := fn(p); err != nil {
			return err
		}
	}
	return rows.Err()
}
