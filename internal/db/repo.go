package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"ehr-scribe/pkg"
)

// Store archives completed consultations and saved reports. It is optional:
// when no DATABASE_URL is configured the rest of the system runs without
// it. The HTTP API stays stateless and never reads the archive.
type Store struct {
	DB *sql.DB
}

// NewStore wraps an existing sql.DB. The caller manages the connection
// lifecycle.
func NewStore(db *sql.DB) *Store { return &Store{DB: db} }

// Consultation is one archived consultation session.
type Consultation struct {
	ID          uuid.UUID
	PatientName string
	Transcript  string
	CreatedAt   time.Time
}

// SaveConsultation stores the patient info, transcript and generated SOAP
// note for a completed session and returns the new row ID.
func (s *Store) SaveConsultation(ctx context.Context, patient pkg.PatientInfo, transcript string, note pkg.SoapNote) (uuid.UUID, error) {
	patientJSON, err := json.Marshal(patient)
	if err != nil {
		return uuid.Nil, fmt.Errorf("encode patient info: %w", err)
	}
	noteJSON, err := json.Marshal(note)
	if err != nil {
		return uuid.Nil, fmt.Errorf("encode soap note: %w", err)
	}

	id := uuid.New()
	_, err = s.DB.ExecContext(ctx,
		`INSERT INTO consultations (id, patient_name, patient_info, transcript, soap_note)
         VALUES ($1, $2, $3, $4, $5)`,
		id, patient.Name, patientJSON, transcript, noteJSON,
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("insert consultation: %w", err)
	}
	return id, nil
}

// SaveReport records a written report file, optionally linked to a
// consultation.
func (s *Store) SaveReport(ctx context.Context, consultationID *uuid.UUID, filename, path string) error {
	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO reports (id, consultation_id, filename, filepath)
         VALUES ($1, $2, $3, $4)`,
		uuid.New(), consultationID, filename, path,
	)
	if err != nil {
		return fmt.Errorf("insert report: %w", err)
	}
	return nil
}

// ListRecent returns the most recent consultations, newest first.
func (s *Store) ListRecent(ctx context.Context, limit int) ([]Consultation, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT id, patient_name, transcript, created_at
         FROM consultations
         ORDER BY created_at DESC
         LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Consultation
	for rows.Next() {
		var c Consultation
		if err := rows.Scan(&c.ID, &c.PatientName, &c.Transcript, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
