package nutrition

import (
	"math"
	"strings"

	"github.com/samber/lo"
)

const DefaultCalorieGoal = 2200.0

func ParseMealType(s string) (MealType, bool) {
	mt := MealType(strings.ToUpper(strings.TrimSpace(s)))
	return mt, lo.Contains(MealTypes, mt)
}

// Scale converts a per-100g value to the logged quantity.
func Scale(per100g, quantityG float64) float64 {
	return round1(per100g * quantityG / 100)
}

func Sum(entries []MealEntry) Totals {
	return Totals{
		Calories: round1(lo.SumBy(entries, func(e MealEntry) float64 { return e.Calories })),
		Protein:  round1(lo.SumBy(entries, func(e MealEntry) float64 { return e.Protein })),
		Carbs:    round1(lo.SumBy(entries, func(e MealEntry) float64 { return e.Carbs })),
		Fat:      round1(lo.SumBy(entries, func(e MealEntry) float64 { return e.Fat })),
	}
}

// Summarize groups a day's entries by meal type. Every meal type is present
// in the result, empty ones included. Progress is capped at 100 and remaining
// never goes below zero.
func Summarize(date string, entries []MealEntry, goal float64) DailyNutrition {
	if goal <= 0 {
		goal = DefaultCalorieGoal
	}
	grouped := lo.GroupBy(entries, func(e MealEntry) MealType { return e.MealType })

	out := DailyNutrition{
		Date:   date,
		Meals:  make(map[MealType][]MealEntry, len(MealTypes)),
		ByMeal: make(map[MealType]Totals, len(MealTypes)),
		Total:  Sum(entries),
		Goal:   goal,
	}
	for _, mt := range MealTypes {
		meals := grouped[mt]
		if meals == nil {
			meals = []MealEntry{}
		}
		out.Meals[mt] = meals
		out.ByMeal[mt] = Sum(meals)
	}
	out.Remaining = round1(math.Max(goal-out.Total.Calories, 0))
	out.ProgressPct = round1(math.Min(out.Total.Calories/goal*100, 100))
	return out
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
