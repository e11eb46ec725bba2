package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHandleRegressionEndToEnd(t *testing.T) {
	reqBody := RegressionRequestDTO{
		ModelConfiguration: ModelConfigurationDTO{KPI: "y"},
		ObservationColumn:  "date",
		VariableTransformations: []VariableTransformationDTO{
			{Variable: "const", ShortName: "const", Include: true, IsConstant: true, Interval: 1},
			{Variable: "x", ShortName: "x", Include: true, Interval: 2},
		},
		Data: map[string][]any{
			"date": {"2024-01-01", "2024-01-02", "2024-01-03", "2024-01-04", "2024-01-05"},
			"x":    {1, 2, 3, 4, 5},
			"y":    {1, 2, 3, 4, 5},
		},
	}
	body, err := json.Marshal(reqBody)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}

	srv := NewServer()
	req := httptest.NewRequest(http.MethodPost, "/v1/regression", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp RegressionResponseDTO
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp.NObservations != 5 {
		t.Errorf("expected 5 observations, got %d", resp.NObservations)
	}
	if _, ok := resp.Coefficients["x"]; !ok {
		t.Error("expected a coefficient for x")
	}
}

func TestHandleRegressionMalformedBodyReturns400(t *testing.T) {
	srv := NewServer()
	req := httptest.NewRequest(http.MethodPost, "/v1/regression", bytes.NewReader([]byte("not json")))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	var failure FailureResponseDTO
	if err := json.Unmarshal(rec.Body.Bytes(), &failure); err != nil {
		t.Fatalf("unmarshal failure: %v", err)
	}
	if failure.Detail == "" {
		t.Error("expected a non-empty detail message")
	}
}

func TestHandleTransformPreview(t *testing.T) {
	reqBody := TransformPreviewRequestDTO{
		VariableName:   "x",
		Data:           []float64{1, 2, 3, 4},
		Transformation: VariableTransformationDTO{Variable: "x", Adstock: 0.5},
	}
	body, err := json.Marshal(reqBody)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}

	srv := NewServer()
	req := httptest.NewRequest(http.MethodPost, "/v1/transform-preview", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp TransformPreviewResponseDTO
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if len(resp.Transformed) != 4 {
		t.Errorf("expected 4 transformed values, got %d", len(resp.Transformed))
	}
}

func TestHandleRegressionWrongMethod(t *testing.T) {
	srv := NewServer()
	req := httptest.NewRequest(http.MethodGet, "/v1/regression", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}
