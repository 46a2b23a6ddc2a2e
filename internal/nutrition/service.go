package nutrition

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"backend-bodytune/internal/db"

	"github.com/google/uuid"
)

var (
	ErrInvalidMeal  = errors.New("invalid meal entry")
	ErrInvalidDate  = errors.New("date must be YYYY-MM-DD")
	ErrMealNotFound = errors.New("meal entry not found")
)

type Service struct {
	db   db.Querier
	goal float64
	now  func() time.Time
}

func NewService(db db.Querier, calorieGoal float64) *Service {
	if calorieGoal <= 0 {
		calorieGoal = DefaultCalorieGoal
	}
	return &Service{db: db, goal: calorieGoal, now: time.Now}
}

func (s *Service) Goal() float64 {
	return s.goal
}

// ResolveDate validates a day key; empty means today.
func (s *Service) ResolveDate(date string) (string, error) {
	if date == "" {
		return s.now().Format(DateLayout), nil
	}
	if _, err := time.Parse(DateLayout, date); err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidDate, date)
	}
	return date, nil
}

func (s *Service) AddMeal(ctx context.Context, userID string, req MealRequest) (MealEntry, error) {
	mealType, ok := ParseMealType(string(req.MealType))
	switch {
	case strings.TrimSpace(req.FoodName) == "":
		return MealEntry{}, fmt.Errorf("%w: food_name required", ErrInvalidMeal)
	case !ok:
		return MealEntry{}, fmt.Errorf("%w: unknown meal type %q", ErrInvalidMeal, req.MealType)
	case req.QuantityG <= 0:
		return MealEntry{}, fmt.Errorf("%w: quantity must be positive", ErrInvalidMeal)
	case req.CaloriesPer100g < 0 || req.ProteinPer100g < 0 || req.CarbsPer100g < 0 || req.FatPer100g < 0:
		return MealEntry{}, fmt.Errorf("%w: nutrient values must not be negative", ErrInvalidMeal)
	}
	date, err := s.ResolveDate(req.Date)
	if err != nil {
		return MealEntry{}, err
	}

	entry := MealEntry{
		ID:        uuid.NewString(),
		UserID:    userID,
		FoodName:  strings.TrimSpace(req.FoodName),
		MealType:  mealType,
		QuantityG: req.QuantityG,
		Date:      date,
		Calories:  Scale(req.CaloriesPer100g, req.QuantityG),
		Protein:   Scale(req.ProteinPer100g, req.QuantityG),
		Carbs:     Scale(req.CarbsPer100g, req.QuantityG),
		Fat:       Scale(req.FatPer100g, req.QuantityG),
	}
	row := s.db.QueryRow(ctx, `
		INSERT INTO meal_entries (id, user_id, food_name, meal_type, quantity_g, entry_date, calories, protein, carbs, fat)
		VALUES ($1,$2,$3,$4,$5,$6::date,$7,$8,$9,$10)
		RETURNING created_at
	`, entry.ID, entry.UserID, entry.FoodName, string(entry.MealType), entry.QuantityG, entry.Date,
		entry.Calories, entry.Protein, entry.Carbs, entry.Fat)
	if err := row.Scan(&entry.CreatedAt); err != nil {
		return MealEntry{}, err
	}
	return entry, nil
}

// Meals lists a user's entries for one day in logging order.
func (s *Service) Meals(ctx context.Context, userID, date string) ([]MealEntry, error) {
	date, err := s.ResolveDate(date)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.Query(ctx, `
		SELECT id, user_id, food_name, meal_type, quantity_g, to_char(entry_date, 'YYYY-MM-DD'),
		       calories, protein, carbs, fat, created_at
		FROM meal_entries WHERE user_id=$1 AND entry_date=$2::date
		ORDER BY created_at
	`, userID, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []MealEntry{}
	for rows.Next() {
		var e MealEntry
		var mealType string
		if err := rows.Scan(&e.ID, &e.UserID, &e.FoodName, &mealType, &e.QuantityG, &e.Date,
			&e.Calories, &e.Protein, &e.Carbs, &e.Fat, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.MealType = MealType(mealType)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *Service) DeleteMeal(ctx context.Context, userID, id string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM meal_entries WHERE id=$1 AND user_id=$2`, id, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrMealNotFound
	}
	return nil
}

func (s *Service) Daily(ctx context.Context, userID, date string) (DailyNutrition, error) {
	date, err := s.ResolveDate(date)
	if err != nil {
		return DailyNutrition{}, err
	}
	entries, err := s.Meals(ctx, userID, date)
	if err != nil {
		return DailyNutrition{}, err
	}
	return Summarize(date, entries, s.goal), nil
}
