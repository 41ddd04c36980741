package store

import (
	"context"

	"specimen-gauge/internal/measure"
	"specimen-gauge/internal/session"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Schema creates the tables PGStore uses. It is idempotent.
const Schema = `
CREATE TABLE IF NOT EXISTS patients (
	id BIGSERIAL PRIMARY KEY,
	name TEXT NOT NULL DEFAULT '',
	cpf TEXT NOT NULL UNIQUE
);
CREATE TABLE IF NOT EXISTS samples (
	id UUID PRIMARY KEY,
	captured_at TIMESTAMPTZ NOT NULL,
	image_png BYTEA NOT NULL,
	width_mm DOUBLE PRECISION NOT NULL,
	height_mm DOUBLE PRECISION NOT NULL,
	margin_ok BOOLEAN,
	result JSONB NOT NULL,
	note TEXT NOT NULL DEFAULT '',
	narrative TEXT NOT NULL DEFAULT '',
	operator TEXT NOT NULL DEFAULT '',
	patient_id BIGINT REFERENCES patients(id),
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS samples_patient_id_idx ON samples (patient_id);
`

// PGStore persists samples in PostgreSQL.
type PGStore struct {
	pool *pgxpool.Pool
	log  *zap.SugaredLogger
}

// OpenPG connects to dsn and ensures the schema exists.
func OpenPG(ctx context.Context, dsn string, log *zap.SugaredLogger) (*PGStore, error) {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, errors.Wrap(err, "connect postgres")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, "ping postgres")
	}

	s := &PGStore{pool: pool, log: log}
	if err := s.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// EnsureSchema applies Schema.
func (s *PGStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, Schema); err != nil {
		return errors.Wrap(err, "failed to initialize database schema")
	}
	return nil
}

// Close releases the pool.
func (s *PGStore) Close() {
	s.pool.Close()
}

// FindPatientByCPF returns the patient ID for cpf, or nil when cpf has no
// digits or no patient matches.
func (s *PGStore) FindPatientByCPF(ctx context.Context, cpf string) (*int64, error) {
	digits := CPFDigits(cpf)
	if digits == "" {
		return nil, nil
	}
	var id int64
	err := s.pool.QueryRow(ctx, `SELECT id FROM patients WHERE cpf = $1`, digits).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "patient lookup")
	}
	return &id, nil
}

// Persist implements session.Persister. An unknown patient reference stores
// the sample unlinked.
func (s *PGStore) Persist(ctx context.Context, c *session.Capture, a session.Annotation) error {
	sample, err := NewSample(c, a)
	if err != nil {
		return err
	}
	sample.PatientID, err = s.FindPatientByCPF(ctx, a.PatientRef)
	if err != nil {
		return err
	}
	if sample.PatientID == nil && CPFDigits(a.PatientRef) != "" {
		s.log.Warnw("store: no patient for CPF, storing unlinked", "sample", sample.ID)
	}
	return s.Insert(ctx, sample)
}

// Insert writes one sample row.
func (s *PGStore) Insert(ctx context.Context, sample Sample) error {
	result, err := measure.Encode(sample.Result)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO samples (id, captured_at, image_png, width_mm, height_mm, margin_ok,
			result, note, narrative, operator, patient_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, sample.ID.String(), sample.CapturedAt, sample.ImagePNG, sample.WidthMM, sample.HeightMM,
		sample.MarginOK, string(result), sample.Note, sample.Narrative, sample.Operator, sample.PatientID)
	if err != nil {
		return errors.Wrapf(err, "insert sample %s", sample.ID)
	}
	s.log.Infow("store: sample inserted", "id", sample.ID, "patient", sample.PatientID != nil)
	return nil
}

// List returns the most recent samples without image data.
func (s *PGStore) List(ctx context.Context, limit int) ([]Sample, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id::text, captured_at, width_mm, height_mm, margin_ok, result::text,
			note, narrative, operator, patient_id
		FROM samples ORDER BY captured_at DESC LIMIT $1
	`, limit)
	if err != nil {
		return nil, errors.Wrap(err, "list samples")
	}
	defer rows.Close()

	var out []Sample
	for rows.Next() {
		var (
			sample Sample
			id     string
			result string
		)
		if err := rows.Scan(&id, &sample.CapturedAt, &sample.WidthMM, &sample.HeightMM, &sample.MarginOK,
			&result, &sample.Note, &sample.Narrative, &sample.Operator, &sample.PatientID); err != nil {
			return nil, errors.Wrap(err, "scan sample")
		}
		if sample.ID, err = uuid.Parse(id); err != nil {
			return nil, errors.Wrapf(err, "sample id %q", id)
		}
		if sample.Result, err = measure.Decode([]byte(result)); err != nil {
			return nil, err
		}
		out = append(out, sample)
	}
	return out, errors.Wrap(rows.Err(), "list samples")
}
