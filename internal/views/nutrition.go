package views

import (
	"math"

	"github.com/rahul4469/meal-analyzer/internal/models"
)

// MalformedResultMessage replaces the results card when a result cannot be shown.
const MalformedResultMessage = "We couldn't read the nutrition data for this meal."

// MacroView is one macro card: grams, share of total macros and bar width.
type MacroView struct {
	Label      string  `json:"label"`
	Grams      float64 `json:"grams"`
	Percentage float64 `json:"percentage"` // unclamped
	BarWidth   float64 `json:"bar_width"`  // clamped to [0, 100]
	ColorClass string  `json:"-"`
}

// FoodItemView is one row of the food list.
type FoodItemView struct {
	Name     string  `json:"name"`
	Quantity string  `json:"quantity"`
	Calories float64 `json:"calories"`
	Protein  float64 `json:"protein"`
	Carbs    float64 `json:"carbs"`
	Fat      float64 `json:"fat"`
}

// NutritionView is what the results card renders.
type NutritionView struct {
	Malformed       bool   `json:"malformed"`
	FallbackMessage string `json:"fallback_message,omitempty"`

	Calories   float64        `json:"calories"`
	Confidence int            `json:"confidence"`
	Macros     []MacroView    `json:"macros,omitempty"`
	Fiber      *float64       `json:"fiber,omitempty"`
	Sugar      *float64       `json:"sugar,omitempty"`
	Foods      []FoodItemView `json:"foods,omitempty"`
}

// HasExtras reports whether fiber or sugar cards should be shown.
func (v NutritionView) HasExtras() bool {
	return v.Fiber != nil || v.Sugar != nil
}

// NewNutritionView builds the display model for result. It has no side
// effects; a nil or invalid result yields a Malformed view.
func NewNutritionView(result *models.NutritionResult, confidence int) NutritionView {
	if err := result.Validate(); err != nil {
		return NutritionView{
			Malformed:       true,
			FallbackMessage: MalformedResultMessage,
		}
	}

	pct := result.Percentages()
	view := NutritionView{
		Calories:   result.Calories,
		Confidence: clampInt(confidence, 0, 100),
		Macros: []MacroView{
			newMacroView("Protein", result.Protein, pct.Protein, "bg-emerald-500"),
			newMacroView("Carbs", result.Carbs, pct.Carbs, "bg-amber-500"),
			newMacroView("Fat", result.Fat, pct.Fat, "bg-lime-400"),
		},
		Fiber: result.Fiber,
		Sugar: result.Sugar,
	}

	for _, f := range result.Foods {
		view.Foods = append(view.Foods, FoodItemView{
			Name:     f.Name,
			Quantity: f.Quantity,
			Calories: f.Calories,
			Protein:  f.Protein,
			Carbs:    f.Carbs,
			Fat:      f.Fat,
		})
	}

	return view
}

func newMacroView(label string, grams, percentage float64, color string) MacroView {
	return MacroView{
		Label:      label,
		Grams:      grams,
		Percentage: percentage,
		BarWidth:   math.Max(0, math.Min(percentage, 100)),
		ColorClass: color,
	}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
