package services

import (
	"errors"
	"testing"

	"github.com/rahul4469/meal-analyzer/internal/models"
)

func TestParseResponse_FlatShapes(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{
			name: "envelope array",
			body: `[{"output":{"status":"success","calories":520,"protein":32,"carbs":48,"fat":21}}]`,
		},
		{
			name: "envelope object",
			body: `{"output":{"status":"success","calories":520,"protein":32,"carbs":48,"fat":21}}`,
		},
		{
			name: "direct object",
			body: `{"calories":520,"protein":32,"carbs":48,"fat":21}`,
		},
		{
			name: "numeric strings with units",
			body: ` {"calories":"520 kcal","protein":"32g","carbs":"48","fat":"21 g"} `,
		},
		{
			name: "null food and total",
			body: `{"status":"success","calories":520,"protein":32,"carbs":48,"fat":21,"food":null,"total":null}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := ParseResponse([]byte(tt.body))
			if err != nil {
				t.Fatalf("ParseResponse() error = %v", err)
			}
			if result.Shape != models.ShapeFlat {
				t.Errorf("Shape = %s, want flat", result.Shape)
			}
			if result.Calories != 520 || result.Protein != 32 || result.Carbs != 48 || result.Fat != 21 {
				t.Errorf("result = %+v", result)
			}
			if result.Foods != nil {
				t.Errorf("flat shape should carry no foods, got %v", result.Foods)
			}
			if result.Fiber != nil || result.Sugar != nil {
				t.Error("fiber and sugar should be absent when not sent")
			}
		})
	}
}

func TestParseResponse_ThousandsSeparator(t *testing.T) {
	result, err := ParseResponse([]byte(`{"calories":"1,200 kcal","protein":"60g","carbs":"1,050","fat":40}`))
	if err != nil {
		t.Fatalf("ParseResponse() error = %v", err)
	}
	if result.Calories != 1200 || result.Carbs != 1050 {
		t.Errorf("result = %+v, want 1200 kcal / 1050 g carbs", result)
	}
}

func TestParseResponse_DetailedShape(t *testing.T) {
	body := `[{"output":{
		"status":"success",
		"food":[
			{"name":"Grilled chicken","quantity":"150 g","calories":248,"protein":46,"carbs":0,"fat":5.4},
			{"name":"Brown rice","quantity":"1 cup","calories":216,"protein":5,"carbs":45,"fat":1.8},
			{"name":"Broccoli","quantity":2,"calories":"55","protein":3.7,"carbs":11,"fat":0.6}
		],
		"total":{"calories":519,"protein":54.7,"carbs":56,"fat":7.8}
	}}]`

	result, err := ParseResponse([]byte(body))
	if err != nil {
		t.Fatalf("ParseResponse() error = %v", err)
	}
	if result.Shape != models.ShapeDetailed {
		t.Errorf("Shape = %s, want detailed", result.Shape)
	}
	if result.Calories != 519 {
		t.Errorf("Calories = %v, want 519", result.Calories)
	}
	if len(result.Foods) != 3 {
		t.Fatalf("len(Foods) = %d, want 3", len(result.Foods))
	}

	want := []struct {
		name     string
		quantity string
		calories float64
	}{
		{"Grilled chicken", "150 g", 248},
		{"Brown rice", "1 cup", 216},
		{"Broccoli", "2", 55},
	}
	for i, w := range want {
		got := result.Foods[i]
		if got.Name != w.name || got.Quantity != w.quantity || got.Calories != w.calories {
			t.Errorf("Foods[%d] = %+v, want %s/%s/%v", i, got, w.name, w.quantity, w.calories)
		}
	}
}

func TestParseResponse_Errors(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantEmpty bool
	}{
		{name: "empty body", body: ``},
		{name: "not json", body: `calories: 500`},
		{name: "truncated json", body: `{"calories": 5`},
		{name: "scalar", body: `42`},
		{name: "missing fat", body: `{"calories":500,"protein":20,"carbs":50}`},
		{name: "negative protein", body: `{"calories":500,"protein":-2,"carbs":50,"fat":10}`},
		{name: "word instead of number", body: `{"calories":"lots","protein":2,"carbs":50,"fat":10}`},
		{name: "detailed without total", body: `{"status":"success","food":[]}`},
		{name: "detailed without food", body: `{"status":"success","total":{"calories":1,"protein":1,"carbs":1,"fat":1}}`},
		{name: "detailed total incomplete", body: `{"food":[],"total":{"calories":1}}`},
		{name: "status not string", body: `{"status":1,"calories":1,"protein":1,"carbs":1,"fat":1}`},
		{name: "failed status", body: `[{"output":{"status":"failed"}}]`, wantEmpty: true},
		{name: "empty array", body: `[]`, wantEmpty: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := ParseResponse([]byte(tt.body))
			if err == nil {
				t.Fatalf("ParseResponse() = %+v, want error", result)
			}
			var pe *models.ParseError
			var ee *models.EmptyResultError
			switch {
			case tt.wantEmpty && !errors.As(err, &ee):
				t.Errorf("error = %T %v, want *EmptyResultError", err, err)
			case !tt.wantEmpty && !errors.As(err, &pe):
				t.Errorf("error = %T %v, want *ParseError", err, err)
			}
		})
	}
}
