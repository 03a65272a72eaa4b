package controllers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/rahul4469/meal-analyzer/internal/models"
	"github.com/rahul4469/meal-analyzer/internal/services"
	"github.com/rahul4469/meal-analyzer/internal/views"
)

// APIController serves the stateless JSON analysis endpoint for script
// clients. It keeps no workflow; each request is one analysis.
type APIController struct {
	selector   *services.ImageSelector
	analyzer   Analyzer
	confidence func() int
}

func NewAPIController(selector *services.ImageSelector, analyzer Analyzer) *APIController {
	return &APIController{
		selector:   selector,
		analyzer:   analyzer,
		confidence: randomConfidence,
	}
}

// ErrorResponse is the JSON body of a failed API call.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

// PostAnalyze analyzes the uploaded "image" and returns the rendered view as JSON.
func (c *APIController) PostAnalyze(w http.ResponseWriter, r *http.Request) {
	img, err := readImage(r, c.selector)
	if err != nil {
		var mbe *http.MaxBytesError
		switch {
		case models.IsValidation(err):
			writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{Error: err.Error(), Kind: "validation"})
		case errors.As(err, &mbe):
			writeJSON(w, http.StatusRequestEntityTooLarge, ErrorResponse{Error: "upload too large", Kind: "validation"})
		default:
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid form data", Kind: "validation"})
		}
		return
	}

	result, err := c.analyzer.Analyze(r.Context(), img)
	if err != nil {
		log.Printf("API analysis failed for %s: %v", img.Filename, err)
		status, kind := classifyError(err)
		writeJSON(w, status, ErrorResponse{Error: failureMessage(err), Kind: kind})
		return
	}

	writeJSON(w, http.StatusOK, views.NewNutritionView(result, c.confidence()))
}

// classifyError maps the analysis error taxonomy to an HTTP status.
func classifyError(err error) (int, string) {
	var ne *models.NetworkError
	var pe *models.ParseError
	var ee *models.EmptyResultError
	switch {
	case errors.As(err, &ne):
		return http.StatusBadGateway, "network"
	case errors.As(err, &pe):
		return http.StatusBadGateway, "parse"
	case errors.As(err, &ee):
		return http.StatusBadGateway, "empty_result"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Failed to encode JSON response: %v", err)
	}
}
