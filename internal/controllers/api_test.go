package controllers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rahul4469/meal-analyzer/internal/models"
	"github.com/rahul4469/meal-analyzer/internal/services"
	"github.com/rahul4469/meal-analyzer/internal/views"
)

func TestAPIController_PostAnalyze(t *testing.T) {
	tests := []struct {
		name       string
		analyzer   *stubAnalyzer
		filename   string
		mime       string
		data       []byte
		wantStatus int
		wantKind   string
	}{
		{
			name:       "success",
			analyzer:   &stubAnalyzer{result: &models.NutritionResult{Calories: 300, Protein: 10, Carbs: 30, Fat: 10}},
			filename:   "lunch.png",
			mime:       "image/png",
			data:       pngHeader,
			wantStatus: http.StatusOK,
		},
		{
			name:       "not an image",
			analyzer:   &stubAnalyzer{},
			filename:   "notes.txt",
			mime:       "text/plain",
			data:       []byte("hello"),
			wantStatus: http.StatusUnprocessableEntity,
			wantKind:   "validation",
		},
		{
			name:       "webhook error",
			analyzer:   &stubAnalyzer{err: &models.NetworkError{StatusCode: 503}},
			filename:   "lunch.png",
			mime:       "image/png",
			data:       pngHeader,
			wantStatus: http.StatusBadGateway,
			wantKind:   "network",
		},
		{
			name:       "malformed reply",
			analyzer:   &stubAnalyzer{err: &models.ParseError{Reason: "unrecognized shape"}},
			filename:   "lunch.png",
			mime:       "image/png",
			data:       pngHeader,
			wantStatus: http.StatusBadGateway,
			wantKind:   "parse",
		},
		{
			name:       "empty result",
			analyzer:   &stubAnalyzer{err: &models.EmptyResultError{Status: "error"}},
			filename:   "lunch.png",
			mime:       "image/png",
			data:       pngHeader,
			wantStatus: http.StatusBadGateway,
			wantKind:   "empty_result",
		},
		{
			name:       "unexpected error",
			analyzer:   &stubAnalyzer{err: errors.New("boom")},
			filename:   "lunch.png",
			mime:       "image/png",
			data:       pngHeader,
			wantStatus: http.StatusInternalServerError,
			wantKind:   "internal",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := NewAPIController(services.NewImageSelector(1<<20), tt.analyzer)
			ctrl.confidence = func() int { return 95 }

			rec := httptest.NewRecorder()
			ctrl.PostAnalyze(rec, uploadRequest(t, "/api/analyze", tt.filename, tt.mime, tt.data))

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d; body: %s", rec.Code, tt.wantStatus, rec.Body.String())
			}
			if tt.wantKind == "" {
				var view views.NutritionView
				if err := json.NewDecoder(rec.Body).Decode(&view); err != nil {
					t.Fatalf("decode: %v", err)
				}
				if view.Calories != 300 || view.Confidence != 95 || view.Malformed {
					t.Errorf("view = %+v", view)
				}
				return
			}

			var resp ErrorResponse
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if resp.Kind != tt.wantKind {
				t.Errorf("kind = %q, want %q", resp.Kind, tt.wantKind)
			}
			if resp.Error == "" {
				t.Error("error message is empty")
			}
		})
	}
}

func TestHealthCheck(t *testing.T) {
	rec := httptest.NewRecorder()
	HealthCheck(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Errorf("body = %s", rec.Body.String())
	}
}
