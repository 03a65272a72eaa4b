package models

import (
	"errors"
	"fmt"
	"math"
)

// ResponseShape records which webhook payload variant produced a result.
type ResponseShape string

const (
	ShapeFlat     ResponseShape = "flat"
	ShapeDetailed ResponseShape = "detailed"
)

// FoodItem is a single food recognised in the photo. Only the detailed
// response shape carries them.
type FoodItem struct {
	Name     string  `json:"name"`
	Quantity string  `json:"quantity"` // free-form, e.g. "1 cup"
	Calories float64 `json:"calories"`
	Protein  float64 `json:"protein"`
	Carbs    float64 `json:"carbs"`
	Fat      float64 `json:"fat"`
}

// NutritionResult is the normalized analysis of one meal photo.
type NutritionResult struct {
	Calories float64 `json:"calories"`
	Protein  float64 `json:"protein"`
	Carbs    float64 `json:"carbs"`
	Fat      float64 `json:"fat"`

	// Only present in the flat shape.
	Fiber *float64 `json:"fiber,omitempty"`
	Sugar *float64 `json:"sugar,omitempty"`

	Foods []FoodItem    `json:"foods,omitempty"`
	Shape ResponseShape `json:"shape"`
}

// Validate reports whether the result can be rendered.
func (r *NutritionResult) Validate() error {
	if r == nil {
		return errors.New("nutrition result is missing")
	}
	totals := []struct {
		name  string
		value float64
	}{
		{"calories", r.Calories},
		{"protein", r.Protein},
		{"carbs", r.Carbs},
		{"fat", r.Fat},
	}
	for _, t := range totals {
		if math.IsNaN(t.value) || math.IsInf(t.value, 0) || t.value < 0 {
			return fmt.Errorf("%s total is invalid: %v", t.name, t.value)
		}
	}
	if r.Shape == ShapeDetailed && r.Foods == nil {
		return errors.New("food list is missing")
	}
	return nil
}

// MacroGrams is the total macro mass in grams.
func (r *NutritionResult) MacroGrams() float64 {
	return r.Protein + r.Carbs + r.Fat
}

// MacroPercentages is the share of each macro in the total macro mass.
type MacroPercentages struct {
	Protein float64
	Carbs   float64
	Fat     float64
}

// Sum of the three percentages; 100 unless all macros are zero.
func (p MacroPercentages) Sum() float64 {
	return p.Protein + p.Carbs + p.Fat
}

// ComputeMacroPercentages returns grams/total*100 for each macro, or all
// zeros when the total is zero.
func ComputeMacroPercentages(protein, carbs, fat float64) MacroPercentages {
	total := protein + carbs + fat
	if total <= 0 {
		return MacroPercentages{}
	}
	return MacroPercentages{
		Protein: protein / total * 100,
		Carbs:   carbs / total * 100,
		Fat:     fat / total * 100,
	}
}

// Percentages computes the macro split of the result.
func (r *NutritionResult) Percentages() MacroPercentages {
	return ComputeMacroPercentages(r.Protein, r.Carbs, r.Fat)
}
