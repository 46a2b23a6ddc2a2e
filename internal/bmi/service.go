package bmi

import (
	"context"
	"errors"

	"backend-bodytune/internal/db"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var ErrNoRecords = errors.New("no bmi records")

const defaultHistoryLimit = 30

type Service struct {
	db db.Querier
}

func NewService(db db.Querier) *Service {
	return &Service{db: db}
}

func (s *Service) Record(ctx context.Context, userID string, req RecordRequest) (Record, error) {
	value, err := Calculate(req.HeightCm, req.WeightKg)
	if err != nil {
		return Record{}, err
	}
	rec := Record{
		ID:       uuid.NewString(),
		UserID:   userID,
		HeightCm: req.HeightCm,
		WeightKg: req.WeightKg,
		Value:    value,
		Category: Category(value),
	}
	row := s.db.QueryRow(ctx, `
		INSERT INTO bmi_records (id, user_id, height_cm, weight_kg, bmi_value, category)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING created_at
	`, rec.ID, rec.UserID, rec.HeightCm, rec.WeightKg, rec.Value, rec.Category)
	if err := row.Scan(&rec.CreatedAt); err != nil {
		return Record{}, err
	}
	return rec, nil
}

// History lists a user's records newest first.
func (s *Service) History(ctx context.Context, userID string, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	rows, err := s.db.Query(ctx, `
		SELECT id, user_id, height_cm, weight_kg, bmi_value, category, created_at
		FROM bmi_records WHERE user_id=$1
		ORDER BY created_at DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := []Record{}
	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.ID, &r.UserID, &r.HeightCm, &r.WeightKg, &r.Value, &r.Category, &r.CreatedAt); err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

func (s *Service) Latest(ctx context.Context, userID string) (Record, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, user_id, height_cm, weight_kg, bmi_value, category, created_at
		FROM bmi_records WHERE user_id=$1
		ORDER BY created_at DESC
		LIMIT 1
	`, userID)
	var r Record
	if err := row.Scan(&r.ID, &r.UserID, &r.HeightCm, &r.WeightKg, &r.Value, &r.Category, &r.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, ErrNoRecords
		}
		return Record{}, err
	}
	return r, nil
}
