package nutrition

import "time"

type MealType string

const (
	Breakfast MealType = "BREAKFAST"
	Lunch     MealType = "LUNCH"
	Dinner    MealType = "DINNER"
	Snacks    MealType = "SNACKS"
)

var MealTypes = []MealType{Breakfast, Lunch, Dinner, Snacks}

// DateLayout is the day key used for entries and queries.
const DateLayout = "2006-01-02"

// MealEntry holds nutrient values already scaled to the logged quantity.
type MealEntry struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	FoodName  string    `json:"food_name"`
	MealType  MealType  `json:"meal_type"`
	QuantityG float64   `json:"quantity_g"`
	Date      string    `json:"date"`
	Calories  float64   `json:"calories"`
	Protein   float64   `json:"protein"`
	Carbs     float64   `json:"carbs"`
	Fat       float64   `json:"fat"`
	CreatedAt time.Time `json:"created_at"`
}

// MealRequest carries per-100g nutrient values from the food catalogue.
type MealRequest struct {
	FoodName        string   `json:"food_name"`
	MealType        MealType `json:"meal_type"`
	QuantityG       float64  `json:"quantity_g"`
	Date            string   `json:"date"`
	CaloriesPer100g float64  `json:"calories_per_100g"`
	ProteinPer100g  float64  `json:"protein_per_100g"`
	CarbsPer100g    float64  `json:"carbs_per_100g"`
	FatPer100g      float64  `json:"fat_per_100g"`
}

type Totals struct {
	Calories float64 `json:"calories"`
	Protein  float64 `json:"protein"`
	Carbs    float64 `json:"carbs"`
	Fat      float64 `json:"fat"`
}

type DailyNutrition struct {
	Date        string                   `json:"date"`
	Meals       map[MealType][]MealEntry `json:"meals"`
	ByMeal      map[MealType]Totals      `json:"by_meal"`
	Total       Totals                   `json:"total"`
	Goal        float64                  `json:"calorie_goal"`
	Remaining   float64                  `json:"remaining"`
	ProgressPct float64                  `json:"progress_pct"`
}
