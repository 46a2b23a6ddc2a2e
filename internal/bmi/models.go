package bmi

import "time"

type Record struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	HeightCm  float64   `json:"height_cm"`
	WeightKg  float64   `json:"weight_kg"`
	Value     float64   `json:"bmi"`
	Category  string    `json:"category"`
	CreatedAt time.Time `json:"created_at"`
}

type RecordRequest struct {
	HeightCm float64 `json:"height_cm"`
	WeightKg float64 `json:"weight_kg"`
}
