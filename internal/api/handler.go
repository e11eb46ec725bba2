package api

import (
	"encoding/json"
	"net/http"

	"github.com/modelhub/mmm-engine/internal/apperr"
	"github.com/modelhub/mmm-engine/internal/panel"
	"github.com/modelhub/mmm-engine/internal/pipeline"
	"github.com/modelhub/mmm-engine/internal/transform"
	"github.com/rs/zerolog/log"
)

// Server wires the engine's HTTP handlers onto a mux, per
// SPEC_FULL.md §5.4.
type Server struct {
	mux *http.ServeMux
}

// NewServer builds a Server with both endpoints registered.
func NewServer() *Server {
	s := &Server{mux: http.NewServeMux()}
	s.mux.HandleFunc("/v1/regression", s.handleRegression)
	s.mux.HandleFunc("/v1/transform-preview", s.handleTransformPreview)
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.mux.ServeHTTP(w, r) }

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error().Err(err).Msg("failed to encode response body")
	}
}

func writeFailure(w http.ResponseWriter, err error) {
	if appErr, ok := err.(*apperr.Error); ok {
		log.Warn().Str("kind", string(appErr.Kind)).Str("stage", string(appErr.Stage)).Err(err).Msg("request failed")
		writeJSON(w, appErr.HTTPStatus(), FailureResponseDTO{Detail: appErr.Message})
		return
	}
	log.Error().Err(err).Msg("unexpected internal error")
	writeJSON(w, http.StatusInternalServerError, FailureResponseDTO{Detail: "internal error"})
}

func (s *Server) handleRegression(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, FailureResponseDTO{Detail: "method not allowed"})
		return
	}

	var req RegressionRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFailure(w, apperr.Input(apperr.StageInput, "malformed request body: %v", err))
		return
	}

	resp, err := RunRegressionRequest(&req)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleTransformPreview(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, FailureResponseDTO{Detail: "method not allowed"})
		return
	}

	var req TransformPreviewRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFailure(w, apperr.Input(apperr.StageInput, "malformed request body: %v", err))
		return
	}

	resp, err := RunTransformPreview(&req)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// RunRegressionRequest executes the full regression pipeline for req,
// shared by the HTTP handler and cmd/mmmctl's "run" subcommand.
func RunRegressionRequest(req *RegressionRequestDTO) (*RegressionResponseDTO, error) {
	cfg, err := toModelConfiguration(req.ModelConfiguration)
	if err != nil {
		return nil, err
	}
	specs := toVariableSpecs(req.VariableTransformations)
	xsSpec := toCrossSectionSpec(req.CrossSectionSpec)
	if xsSpec != nil {
		if err := panel.ValidateCrossSectionSpec(xsSpec); err != nil {
			return nil, err
		}
	}

	ds, err := toRawDataset(req)
	if err != nil {
		return nil, err
	}
	if !cfg.StartDate.IsZero() && !cfg.EndDate.IsZero() {
		ds, err = panel.FilterByDateWindow(ds, cfg.StartDate, cfg.EndDate)
		if err != nil {
			return nil, err
		}
	}

	result, err := pipeline.Run(cfg, specs, xsSpec, ds, nil)
	if err != nil {
		return nil, err
	}
	return toRegressionResponse(result), nil
}

// RunTransformPreview executes one transform against req's data, shared by
// the HTTP handler and cmd/mmmctl's "preview" subcommand.
func RunTransformPreview(req *TransformPreviewRequestDTO) (*TransformPreviewResponseDTO, error) {
	spec := toVariableSpec(req.Transformation)
	refKind := 0
	switch spec.Reference.Kind {
	case panel.RefMin:
		refKind = 1
	case panel.RefMax:
		refKind = 2
	case panel.RefNumeric:
		refKind = 3
	}
	cfg := transform.Config{
		Variable:         req.VariableName,
		Include:          spec.Include,
		PreTransform:     spec.PreTransform,
		Lag:              spec.Lag,
		Lead:             spec.Lead,
		Adstock:          spec.Adstock,
		Dimret:           spec.Dimret,
		DimretAdstock:    spec.DimretAdstock,
		PostTransform:    spec.PostTransform,
		ReferenceKind:    refKind,
		ReferenceNumeric: spec.Reference.Value,
	}

	out, err := transform.Apply(req.VariableName, req.Data, cfg)
	if err != nil {
		return nil, err
	}

	return &TransformPreviewResponseDTO{
		Variable:    req.VariableName,
		Original:    sanitizedSeries(req.Data),
		Transformed: sanitizedSeries(out),
	}, nil
}
