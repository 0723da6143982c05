// Package web serves the three apps as HTML forms and a small JSON API.
package web

import (
	"context"
	"embed"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/HugeFrog24/media-scorer/utils"
)

//go:embed templates/*.html
var templateFS embed.FS

const formField = "media"

type Server struct {
	analyzer       utils.Analyzer
	variants       []utils.Variant
	maxUploadBytes int64
	logger         *slog.Logger
	pages          *template.Template
}

type indexPage struct {
	Variants []utils.Variant
}

type appPage struct {
	Variants     []utils.Variant
	Variant      utils.Variant
	Accept       string
	Outcome      *utils.Outcome
	OutcomeJSON  string
	StillDataURL template.URL
	Error        string
}

func NewServer(analyzer utils.Analyzer, variants []utils.Variant, maxUploadBytes int64, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}
	pages, err := template.New("").Funcs(template.FuncMap{
		"confidence": func(f float64) string { return fmt.Sprintf("%.3g", f) },
	}).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	return &Server{
		analyzer:       analyzer,
		variants:       variants,
		maxUploadBytes: maxUploadBytes,
		logger:         logger,
		pages:          pages,
	}, nil
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /apps/{variant}", s.handleForm)
	mux.HandleFunc("POST /apps/{variant}", s.handleSubmit)
	mux.HandleFunc("POST /api/{variant}", s.handleAPI)
	return mux
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.render(w, http.StatusOK, "index.html", indexPage{Variants: s.variants})
}

func (s *Server) handleForm(w http.ResponseWriter, r *http.Request) {
	variant, err := utils.FindVariant(s.variants, r.PathValue("variant"))
	if err != nil {
		http.NotFound(w, r)
		return
	}
	s.render(w, http.StatusOK, "app.html", s.newAppPage(variant))
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	variant, err := utils.FindVariant(s.variants, r.PathValue("variant"))
	if err != nil {
		http.NotFound(w, r)
		return
	}
	page := s.newAppPage(variant)

	outcome, status, err := s.analyze(w, r, variant)
	if err != nil {
		page.Error = err.Error()
		s.render(w, status, "app.html", page)
		return
	}

	page.Outcome = outcome
	if outcome.Scenes != nil || outcome.Failed() {
		pretty, _ := json.MarshalIndent(viewerValue(outcome), "", "  ")
		page.OutcomeJSON = string(pretty)
	}
	if len(outcome.BestSceneStill) > 0 {
		page.StillDataURL = template.URL("data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(outcome.BestSceneStill))
	}
	s.render(w, http.StatusOK, "app.html", page)
}

func (s *Server) handleAPI(w http.ResponseWriter, r *http.Request) {
	variant, err := utils.FindVariant(s.variants, r.PathValue("variant"))
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		return
	}

	outcome, status, err := s.analyze(w, r, variant)
	if err != nil {
		writeJSON(w, status, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, outcome)
}

// analyze reads the uploaded media and runs the pipeline. On failure it
// returns the HTTP status the error maps to.
func (s *Server) analyze(w http.ResponseWriter, r *http.Request, variant utils.Variant) (*utils.Outcome, int, error) {
	asset, err := s.readAsset(w, r)
	if err != nil {
		return nil, http.StatusBadRequest, err
	}
	if !variant.Accepts(asset.MIMEType) {
		return nil, http.StatusUnsupportedMediaType, fmt.Errorf("%s expects %s media, got %s", variant.Title, variant.Media, asset.MIMEType)
	}

	outcome, err := s.analyzer.Analyze(r.Context(), asset, variant)
	if err != nil {
		s.logger.Error("analysis failed", "variant", variant.Name, "file", asset.Name, "error", err)
		return nil, statusFor(err), err
	}
	return outcome, http.StatusOK, nil
}

func (s *Server) readAsset(w http.ResponseWriter, r *http.Request) (utils.MediaAsset, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		return utils.MediaAsset{}, fmt.Errorf("invalid upload: %w", err)
	}

	file, header, err := r.FormFile(formField)
	if err != nil {
		return utils.MediaAsset{}, fmt.Errorf("no media uploaded: %w", err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return utils.MediaAsset{}, fmt.Errorf("failed to read upload: %w", err)
	}
	if len(data) == 0 {
		return utils.MediaAsset{}, fmt.Errorf("uploaded file is empty")
	}

	return utils.MediaAsset{
		Name:     header.Filename,
		MIMEType: detectMIMEType(data, header.Header.Get("Content-Type"), header.Filename),
		Data:     data,
	}, nil
}

// detectMIMEType prefers the sniffed type, then the declared one, then the extension.
func detectMIMEType(data []byte, declared, filename string) string {
	sniffed := http.DetectContentType(data)
	if strings.HasPrefix(sniffed, "image/") || strings.HasPrefix(sniffed, "video/") {
		return sniffed
	}
	if declared != "" && declared != "application/octet-stream" {
		return declared
	}
	if byName := utils.MIMETypeForFile(filename); byName != "" {
		return byName
	}
	return sniffed
}

func statusFor(err error) int {
	var (
		uploadErr     *utils.UploadError
		processingErr *utils.ProcessingError
		timeoutErr    *utils.TimeoutError
		invocationErr *utils.InvocationError
	)
	switch {
	case errors.As(err, &timeoutErr):
		return http.StatusGatewayTimeout
	case errors.As(err, &uploadErr), errors.As(err, &processingErr), errors.As(err, &invocationErr):
		return http.StatusBadGateway
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// viewerValue is what the raw JSON viewer shows: the scene analysis as the
// model returned it, or the error object.
func viewerValue(outcome *utils.Outcome) interface{} {
	if outcome.Failed() {
		return outcome.Error
	}
	return outcome.Scenes
}

func (s *Server) newAppPage(variant utils.Variant) appPage {
	return appPage{
		Variants: s.variants,
		Variant:  variant,
		Accept:   string(variant.Media) + "/*",
	}
}

func (s *Server) render(w http.ResponseWriter, status int, name string, data interface{}) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := s.pages.ExecuteTemplate(w, name, data); err != nil {
		s.logger.Error("failed to render page", "page", name, "error", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, value interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(value)
}
