package controllers

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/csrf"
	"github.com/rahul4469/meal-analyzer/internal/middleware"
	"github.com/rahul4469/meal-analyzer/internal/models"
	"github.com/rahul4469/meal-analyzer/internal/services"
	"github.com/rahul4469/meal-analyzer/internal/views"
)

// Analyzer turns a selected image into a nutrition result.
type Analyzer interface {
	Analyze(ctx context.Context, img *models.SelectedImage) (*models.NutritionResult, error)
}

// analyzingRefreshSeconds is how often the page reloads while an analysis is pending.
const analyzingRefreshSeconds = 2

// multipartMemory is how much of an upload is kept in memory before spilling to disk.
const multipartMemory = 12 << 20

// AnalyzeController drives the per-session analysis workflow.
type AnalyzeController struct {
	store      *models.WorkflowStore
	selector   *services.ImageSelector
	analyzer   Analyzer
	templates  AnalyzeTemplates
	baseCtx    context.Context
	confidence func() int

	inflight sync.WaitGroup
}

// AnalyzeTemplates holds the templates for analysis pages.
type AnalyzeTemplates struct {
	Home *views.Template
}

// NewAnalyzeController creates a new AnalyzeController. Analyses run on
// contexts derived from baseCtx, so cancelling it stops them all.
func NewAnalyzeController(
	baseCtx context.Context,
	store *models.WorkflowStore,
	selector *services.ImageSelector,
	analyzer Analyzer,
	templates AnalyzeTemplates,
) *AnalyzeController {
	return &AnalyzeController{
		store:      store,
		selector:   selector,
		analyzer:   analyzer,
		templates:  templates,
		baseCtx:    baseCtx,
		confidence: randomConfidence,
	}
}

// randomConfidence is display-only; it carries no statistical meaning.
func randomConfidence() int {
	return rand.Intn(10) + 90
}

// HomeData holds data for the home page template.
type HomeData struct {
	HasImage  bool
	Analyzing bool

	PreviewURL string
	Filename   string

	HasResult bool
	Result    views.NutritionView

	Failure      string
	ShowTryAgain bool

	MaxUploadLabel string
}

// GetHome renders the hero, the upload card and the results area for the
// current session.
func (c *AnalyzeController) GetHome(w http.ResponseWriter, r *http.Request) {
	wf := c.store.Get(middleware.MustSessionID(r))

	data := c.homeTemplateData(r, wf.Snapshot())
	if n := wf.TakeNotice(); n != nil {
		applyNotice(data, n)
	}

	c.templates.Home.ExecuteHTTP(w, r, data)
}

// PostAnalyze accepts the uploaded photo and starts an analysis.
func (c *AnalyzeController) PostAnalyze(w http.ResponseWriter, r *http.Request) {
	wf := c.store.Get(middleware.MustSessionID(r))

	img, err := readImage(r, c.selector)
	if err != nil {
		var mbe *http.MaxBytesError
		switch {
		case models.IsValidation(err):
			c.renderHomeError(w, r, wf, http.StatusUnprocessableEntity, err.Error())
		case errors.As(err, &mbe):
			c.renderHomeError(w, r, wf, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("invalid file: file is larger than %s", c.maxUploadLabel()))
		default:
			log.Printf("Failed to read upload: %v", err)
			c.renderHomeError(w, r, wf, http.StatusBadRequest, "Invalid form data")
		}
		return
	}

	run, err := wf.Begin(c.baseCtx, img)
	if err != nil {
		if errors.Is(err, models.ErrAnalysisInProgress) {
			data := c.homeTemplateData(r, wf.Snapshot())
			data.Warning = "Please wait for the current analysis to finish."
			c.templates.Home.ExecuteHTTPWithStatus(w, r, http.StatusConflict, data)
			return
		}
		log.Printf("Failed to start analysis: %v", err)
		c.renderHomeError(w, r, wf, http.StatusInternalServerError, models.GenericFailureMessage)
		return
	}

	log.Printf("Starting analysis %d for %s (%s, %d bytes)", run.ID, img.Filename, img.MIMEType, img.Size())
	c.inflight.Add(1)
	go c.runAnalysis(wf, run)

	http.Redirect(w, r, "/#upload-section", http.StatusSeeOther)
}

// PostReset discards the session's image and result.
func (c *AnalyzeController) PostReset(w http.ResponseWriter, r *http.Request) {
	wf := c.store.Get(middleware.MustSessionID(r))
	wf.Reset()
	http.Redirect(w, r, "/#upload-section", http.StatusSeeOther)
}

// StateResponse is the JSON form of a workflow snapshot.
type StateResponse struct {
	State    models.WorkflowState `json:"state"`
	Filename string               `json:"filename,omitempty"`
	Result   *views.NutritionView `json:"result,omitempty"`
	Error    string               `json:"error,omitempty"`
}

// GetState reports the session's workflow state as JSON. Polling does not
// create a workflow for a session that never selected an image.
func (c *AnalyzeController) GetState(w http.ResponseWriter, r *http.Request) {
	snap := models.WorkflowSnapshot{State: models.StateIdle}
	if wf, ok := c.store.Lookup(middleware.MustSessionID(r)); ok {
		snap = wf.Snapshot()
	}

	resp := StateResponse{
		State: snap.State,
		Error: snap.Failure,
	}
	if snap.Image != nil {
		resp.Filename = snap.Image.Filename
	}
	if snap.State == models.StateSucceeded {
		view := views.NewNutritionView(snap.Result, snap.Confidence)
		resp.Result = &view
	}

	writeJSON(w, http.StatusOK, resp)
}

// Wait blocks until every started analysis has finished.
func (c *AnalyzeController) Wait() {
	c.inflight.Wait()
}

// runAnalysis makes the single webhook attempt for run and records the outcome.
func (c *AnalyzeController) runAnalysis(wf *models.Workflow, run *models.Run) {
	defer c.inflight.Done()

	start := time.Now()
	result, err := c.analyzer.Analyze(run.Ctx, run.Image)
	if err == nil && result == nil {
		err = &models.ParseError{Reason: "analyzer returned no result"}
	}
	if err != nil {
		if errors.Is(err, context.Canceled) && run.Ctx.Err() != nil {
			log.Printf("Analysis %d cancelled after %s", run.ID, time.Since(start))
			return
		}
		log.Printf("Analysis %d failed after %s: %v", run.ID, time.Since(start), err)
		if !wf.Fail(run.ID, failureMessage(err)) {
			log.Printf("Analysis %d was superseded, dropping failure", run.ID)
		}
		return
	}

	if !wf.Succeed(run.ID, result, c.confidence()) {
		log.Printf("Analysis %d was superseded, dropping result", run.ID)
		return
	}
	log.Printf("Analysis %d completed in %s: %s shape, %v kcal, %d food items",
		run.ID, time.Since(start), result.Shape, result.Calories, len(result.Foods))
}

// failureMessage is the user-facing text for an analysis error.
func failureMessage(err error) string {
	var ne *models.NetworkError
	var pe *models.ParseError
	var ee *models.EmptyResultError
	switch {
	case errors.As(err, &ne):
		if ne.StatusCode != 0 {
			return ne.Error()
		}
		return "Could not reach the analysis service. Please try again."
	case errors.As(err, &pe):
		return "Invalid response format"
	case errors.As(err, &ee):
		return "No nutrition data was returned for this image."
	default:
		return models.GenericFailureMessage
	}
}

func (c *AnalyzeController) homeTemplateData(r *http.Request, snap models.WorkflowSnapshot) *views.TemplateData {
	home := HomeData{
		HasImage:       snap.Image != nil,
		Analyzing:      snap.State == models.StateAnalyzing,
		HasResult:      snap.State == models.StateSucceeded,
		Failure:        snap.Failure,
		ShowTryAgain:   snap.State == models.StateFailed,
		MaxUploadLabel: c.maxUploadLabel(),
	}
	if snap.Image != nil {
		home.PreviewURL = snap.Image.PreviewURL()
		home.Filename = snap.Image.Filename
	}
	if home.HasResult {
		home.Result = views.NewNutritionView(snap.Result, snap.Confidence)
	}

	data := &views.TemplateData{
		Title:       "Meal Analyzer - Snap. Analyze. Optimize.",
		Description: "Instant AI-powered nutrition analysis from any meal photo.",
		CSRFToken:   csrf.Token(r),
		Data:        home,
	}
	if home.Analyzing {
		data.RefreshSeconds = analyzingRefreshSeconds
	}
	return data
}

// renderHomeError renders the home page with an error message. The
// workflow is left untouched.
func (c *AnalyzeController) renderHomeError(w http.ResponseWriter, r *http.Request, wf *models.Workflow, status int, errMsg string) {
	data := c.homeTemplateData(r, wf.Snapshot())
	data.Error = errMsg
	c.templates.Home.ExecuteHTTPWithStatus(w, r, status, data)
}

func (c *AnalyzeController) maxUploadLabel() string {
	return c.selector.MaxSizeLabel()
}

func applyNotice(data *views.TemplateData, n *models.Notice) {
	if n.Destructive {
		data.Error = n.Title + ": " + n.Description
		return
	}
	data.Success = n.Title
	data.Info = n.Description
}

// readImage extracts and validates the "image" field of a multipart upload.
func readImage(r *http.Request, selector *services.ImageSelector) (*models.SelectedImage, error) {
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		return nil, err
	}

	files := r.MultipartForm.File[services.ImageFieldName]
	if len(files) == 0 {
		return nil, &models.ValidationError{Issue: "no image selected"}
	}
	return selector.SelectFileHeader(files[0])
}
