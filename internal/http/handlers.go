package http

import (
	"net/http"
	"path/filepath"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"ehr-scribe/internal/core"
	"ehr-scribe/internal/db"
	"ehr-scribe/pkg"
)

// Server bundles the dependencies the HTTP handlers need. The generator
// fields are nil when no API key was configured at startup; affected
// endpoints then report the service unavailable instead of crashing. The
// API holds no session state: callers pass each stage's output forward.
type Server struct {
	Soap      *core.SOAPGenerator
	Exams     *core.ExamRecommender
	Drugs     *core.DrugChecker
	Reports   core.ReportWriter
	Store     *db.Store // optional archive; nil disables it
	StaticDir string
	Log       zerolog.Logger
}

// Router builds the echo instance with all routes and middleware attached.
func (s *Server) Router() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = s.errorHandler

	e.Use(Recovery(s.Log))
	e.Use(Logger(s.Log))

	e.GET("/", s.handleIndex)
	e.GET("/health", s.handleHealth)
	e.POST("/api/generate-soap", s.handleGenerateSoap)
	e.POST("/api/recommend-examinations", s.handleRecommendExams)
	e.POST("/api/check-drug-conflicts", s.handleCheckConflicts)
	e.POST("/api/save-report", s.handleSaveReport)

	return e
}

// errorHandler shapes echo's own errors into the API's JSON contract:
// unknown routes get {"error": "not found"}, everything else the
// {"success": false, "error": ...} envelope.
func (s *Server) errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	code := http.StatusInternalServerError
	msg := err.Error()
	if he, ok := err.(*echo.HTTPError); ok {
		code = he.Code
		if m, ok := he.Message.(string); ok {
			msg = m
		}
	}
	if code == http.StatusNotFound {
		_ = c.JSON(code, map[string]string{"error": "not found"})
		return
	}
	_ = c.JSON(code, map[string]any{"success": false, "error": msg})
}

func (s *Server) handleIndex(c echo.Context) error {
	return c.File(filepath.Join(s.StaticDir, "index.html"))
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleGenerateSoap(c echo.Context) error {
	if s.Soap == nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "AI components not initialized"})
	}

	var req pkg.GenerateSoapRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if strings.TrimSpace(req.Transcript) == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "transcript must not be empty"})
	}

	// A model failure still answers with the degraded record; the error
	// field inside data is the caller's signal.
	note, _ := s.Soap.Generate(c.Request().Context(), req.Transcript, req.PatientInfo)
	return c.JSON(http.StatusOK, map[string]any{"success": true, "data": note})
}

func (s *Server) handleRecommendExams(c echo.Context) error {
	if s.Exams == nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "AI components not initialized"})
	}

	var req pkg.RecommendExamsRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if req.SoapData.Empty() {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "soap_data must not be empty"})
	}

	list, _ := s.Exams.Recommend(c.Request().Context(), req.SoapData, req.Transcript)
	return c.JSON(http.StatusOK, map[string]any{"success": true, "data": list})
}

func (s *Server) handleCheckConflicts(c echo.Context) error {
	if s.Drugs == nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "AI components not initialized"})
	}

	var req pkg.CheckConflictsRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if strings.TrimSpace(req.PlanText) == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "plan_text must not be empty"})
	}

	ctx := c.Request().Context()
	drugs := s.Drugs.ExtractDrugs(ctx, req.PlanText)
	if len(drugs) == 0 {
		// Nothing to check; the conflict prompt is never issued.
		return c.JSON(http.StatusOK, map[string]any{
			"success": true,
			"data": map[string]any{
				"has_conflicts": false,
				"message":       "no drugs found in plan",
			},
		})
	}

	report, _ := s.Drugs.CheckConflicts(ctx,
		drugs,
		req.PatientInfo.AllergyList(),
		req.PatientInfo.MedicationList(),
		req.PatientInfo.MedicalHistory)

	return c.JSON(http.StatusOK, map[string]any{
		"success":          true,
		"data":             report,
		"prescribed_drugs": drugs,
	})
}

func (s *Server) handleSaveReport(c echo.Context) error {
	var req pkg.SaveReportRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if strings.TrimSpace(req.Content) == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "report content must not be empty"})
	}

	filename, path, err := s.Reports.Save(req.Content)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]any{"success": false, "error": err.Error()})
	}

	if s.Store != nil {
		if err := s.Store.SaveReport(c.Request().Context(), nil, filename, path); err != nil {
			s.Log.Error().Err(err).Msg("archive report record")
		}
	}

	return c.JSON(http.StatusOK, map[string]any{
		"success":  true,
		"filename": filename,
		"filepath": path,
	})
}
