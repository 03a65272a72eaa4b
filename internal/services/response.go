package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/rahul4469/meal-analyzer/internal/models"
)

// The webhook answers in one of two payload variants, optionally wrapped
// in an envelope:
//
//	[{"output": {...}}]    or    {"output": {...}}    or    {...}
//
// flat:     {"status": "success", "calories": 520, "protein": 32, "carbs": 48, "fat": 21, "fiber": 6, "sugar": 9}
// detailed: {"status": "success", "food": [{...}], "total": {"calories": 520, ...}}

const statusSuccess = "success"

// quantity is a number that may arrive as a JSON number or as a numeric
// string with a unit suffix ("25g", "430 kcal").
type quantity struct {
	value float64
	set   bool
}

func (q *quantity) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}

	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		v, err := parseQuantityString(s)
		if err != nil {
			return err
		}
		q.value, q.set = v, true
		return nil
	}

	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	q.value, q.set = v, true
	return nil
}

func parseQuantityString(s string) (float64, error) {
	// thousands separators: "1,200 kcal"
	s = strings.ReplaceAll(s, ",", "")
	trimmed := strings.TrimRightFunc(strings.TrimSpace(s), func(r rune) bool {
		return !unicode.IsDigit(r) && r != '.'
	})
	v, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return 0, fmt.Errorf("not a number: %q", s)
	}
	return v, nil
}

type flatPayload struct {
	Status   *string  `json:"status"`
	Calories quantity `json:"calories"`
	Protein  quantity `json:"protein"`
	Carbs    quantity `json:"carbs"`
	Fat      quantity `json:"fat"`
	Fiber    quantity `json:"fiber"`
	Sugar    quantity `json:"sugar"`
}

type macroPayload struct {
	Calories quantity `json:"calories"`
	Protein  quantity `json:"protein"`
	Carbs    quantity `json:"carbs"`
	Fat      quantity `json:"fat"`
}

type foodPayload struct {
	Name   string `json:"name"`
	Amount string `json:"quantity"`
	macroPayload
}

// UnmarshalJSON accepts quantity as either free-form text or a bare number.
func (f *foodPayload) UnmarshalJSON(b []byte) error {
	var raw struct {
		Name     string          `json:"name"`
		Quantity json.RawMessage `json:"quantity"`
		macroPayload
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	f.Name = raw.Name
	f.macroPayload = raw.macroPayload
	if len(raw.Quantity) > 0 && string(raw.Quantity) != "null" {
		var s string
		if err := json.Unmarshal(raw.Quantity, &s); err == nil {
			f.Amount = s
		} else {
			f.Amount = strings.TrimSpace(string(raw.Quantity))
		}
	}
	return nil
}

type detailedPayload struct {
	Status *string        `json:"status"`
	Food   *[]foodPayload `json:"food"`
	Total  *macroPayload  `json:"total"`
}

// ParseResponse normalizes a webhook body into a NutritionResult. It fails
// with *models.ParseError for unrecognized bodies and *models.EmptyResultError
// when the payload reports a non-success status.
func ParseResponse(body []byte) (*models.NutritionResult, error) {
	inner, err := unwrapEnvelope(body)
	if err != nil {
		return nil, err
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(inner, &fields); err != nil {
		return nil, &models.ParseError{Reason: "payload is not an object", Cause: err}
	}

	if raw, ok := fields["status"]; ok {
		var status string
		if err := json.Unmarshal(raw, &status); err != nil {
			return nil, &models.ParseError{Reason: "status is not a string", Cause: err}
		}
		if status != statusSuccess {
			return nil, &models.EmptyResultError{Status: status}
		}
	}

	if present(fields, "food") || present(fields, "total") {
		var p detailedPayload
		if err := json.Unmarshal(inner, &p); err != nil {
			return nil, &models.ParseError{Reason: "malformed detailed payload", Cause: err}
		}
		return p.normalize()
	}

	var p flatPayload
	if err := json.Unmarshal(inner, &p); err != nil {
		return nil, &models.ParseError{Reason: "malformed flat payload", Cause: err}
	}
	return p.normalize()
}

// present reports whether key is set to something other than null.
func present(fields map[string]json.RawMessage, key string) bool {
	raw, ok := fields[key]
	return ok && string(bytes.TrimSpace(raw)) != "null"
}

// unwrapEnvelope strips the optional [ {output: ...} ] wrapping.
func unwrapEnvelope(body []byte) (json.RawMessage, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, &models.ParseError{Reason: "empty body"}
	}

	var element json.RawMessage
	switch body[0] {
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(body, &items); err != nil {
			return nil, &models.ParseError{Reason: "body is not valid JSON", Cause: err}
		}
		if len(items) == 0 {
			return nil, &models.EmptyResultError{}
		}
		element = items[0]
	case '{':
		if !json.Valid(body) {
			return nil, &models.ParseError{Reason: "body is not valid JSON"}
		}
		element = body
	default:
		return nil, &models.ParseError{Reason: "expected a JSON object or array"}
	}

	var wrapper struct {
		Output json.RawMessage `json:"output"`
	}
	if err := json.Unmarshal(element, &wrapper); err != nil {
		return nil, &models.ParseError{Reason: "envelope is not an object", Cause: err}
	}
	if len(wrapper.Output) > 0 && string(wrapper.Output) != "null" {
		return wrapper.Output, nil
	}
	return element, nil
}

func (p *flatPayload) normalize() (*models.NutritionResult, error) {
	totals, err := requireMacros(macroPayload{
		Calories: p.Calories,
		Protein:  p.Protein,
		Carbs:    p.Carbs,
		Fat:      p.Fat,
	}, "")
	if err != nil {
		return nil, err
	}

	result := &models.NutritionResult{
		Calories: totals.Calories,
		Protein:  totals.Protein,
		Carbs:    totals.Carbs,
		Fat:      totals.Fat,
		Shape:    models.ShapeFlat,
	}
	if p.Fiber.set {
		if p.Fiber.value < 0 {
			return nil, &models.ParseError{Reason: "fiber is negative"}
		}
		v := p.Fiber.value
		result.Fiber = &v
	}
	if p.Sugar.set {
		if p.Sugar.value < 0 {
			return nil, &models.ParseError{Reason: "sugar is negative"}
		}
		v := p.Sugar.value
		result.Sugar = &v
	}
	return result, nil
}

func (p *detailedPayload) normalize() (*models.NutritionResult, error) {
	if p.Total == nil {
		return nil, &models.ParseError{Reason: "detailed payload has no total"}
	}
	if p.Food == nil {
		return nil, &models.ParseError{Reason: "detailed payload has no food list"}
	}

	totals, err := requireMacros(*p.Total, "total.")
	if err != nil {
		return nil, err
	}

	foods := make([]models.FoodItem, 0, len(*p.Food))
	for i, f := range *p.Food {
		item := models.FoodItem{
			Name:     strings.TrimSpace(f.Name),
			Quantity: f.Amount,
			Calories: f.Calories.value,
			Protein:  f.Protein.value,
			Carbs:    f.Carbs.value,
			Fat:      f.Fat.value,
		}
		if item.Name == "" {
			item.Name = "Unnamed item"
		}
		if item.Calories < 0 || item.Protein < 0 || item.Carbs < 0 || item.Fat < 0 {
			return nil, &models.ParseError{Reason: fmt.Sprintf("food[%d] has a negative value", i)}
		}
		foods = append(foods, item)
	}

	return &models.NutritionResult{
		Calories: totals.Calories,
		Protein:  totals.Protein,
		Carbs:    totals.Carbs,
		Fat:      totals.Fat,
		Foods:    foods,
		Shape:    models.ShapeDetailed,
	}, nil
}

type macroTotals struct {
	Calories, Protein, Carbs, Fat float64
}

func requireMacros(m macroPayload, prefix string) (macroTotals, error) {
	fields := []struct {
		name string
		q    quantity
	}{
		{"calories", m.Calories},
		{"protein", m.Protein},
		{"carbs", m.Carbs},
		{"fat", m.Fat},
	}
	for _, f := range fields {
		if !f.q.set {
			return macroTotals{}, &models.ParseError{Reason: fmt.Sprintf("missing %s%s", prefix, f.name)}
		}
		if f.q.value < 0 {
			return macroTotals{}, &models.ParseError{Reason: fmt.Sprintf("%s%s is negative", prefix, f.name)}
		}
	}
	return macroTotals{
		Calories: m.Calories.value,
		Protein:  m.Protein.value,
		Carbs:    m.Carbs.value,
		Fat:      m.Fat.value,
	}, nil
}
