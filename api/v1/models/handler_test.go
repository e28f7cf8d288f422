package models

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go_modelops/internal/httpx"
	"go_modelops/internal/registry"
	"go_modelops/internal/testdb"

	"github.com/gin-gonic/gin"
)

func setupTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()

	h := NewHandler(registry.NewService(testdb.New(t)))
	r.POST("/models/register", h.RegisterModel)
	r.GET("/models", h.List)
	r.POST("/models/:name/versions/register", h.RegisterVersion)
	r.GET("/models/:name/versions", h.ListVersions)
	r.POST("/models/:name/versions/status", h.UpdateStatus)
	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path, body string) (*httptest.ResponseRecorder, httpx.Response) {
	t.Helper()
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	var resp httpx.Response
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	return w, resp
}

func TestRegisterModelEndpoint(t *testing.T) {
	r := setupTestRouter(t)

	w, resp := doJSON(t, r, "POST", "/models/register", `{"name":"gemini","description":"chat"}`)
	if w.Code != http.StatusOK || resp.Code != httpx.CodeSuccess {
		t.Fatalf("unexpected response: status=%d code=%d", w.Code, resp.Code)
	}

	t.Run("missing name rejected", func(t *testing.T) {
		w, resp := doJSON(t, r, "POST", "/models/register", `{}`)
		if w.Code != http.StatusBadRequest || resp.Code != httpx.CodeParamInvalid {
			t.Errorf("expected 400/param invalid, got status=%d code=%d", w.Code, resp.Code)
		}
	})
}

func TestRegisterVersionEndpoint(t *testing.T) {
	r := setupTestRouter(t)
	doJSON(t, r, "POST", "/models/register", `{"name":"gemini"}`)

	w, resp := doJSON(t, r, "POST", "/models/gemini/versions/register", `{"version":"1.0.0"}`)
	if w.Code != http.StatusOK || resp.Code != httpx.CodeSuccess {
		t.Fatalf("unexpected response: status=%d code=%d", w.Code, resp.Code)
	}

	t.Run("bad semver rejected", func(t *testing.T) {
		w, resp := doJSON(t, r, "POST", "/models/gemini/versions/register", `{"version":"latest"}`)
		if w.Code != http.StatusBadRequest || resp.Code != httpx.CodeParamInvalid {
			t.Errorf("expected 400/param invalid, got status=%d code=%d", w.Code, resp.Code)
		}
	})

	t.Run("unknown model 404", func(t *testing.T) {
		w, resp := doJSON(t, r, "POST", "/models/nope/versions/register", `{"version":"1.0.0"}`)
		if w.Code != http.StatusNotFound || resp.Code != httpx.CodeNotFound {
			t.Errorf("expected 404/not found, got status=%d code=%d", w.Code, resp.Code)
		}
	})

	t.Run("duplicate version 409", func(t *testing.T) {
		w, resp := doJSON(t, r, "POST", "/models/gemini/versions/register", `{"version":"1.0.0"}`)
		if w.Code != http.StatusConflict || resp.Code != httpx.CodeAlreadyExists {
			t.Errorf("expected 409/already exists, got status=%d code=%d", w.Code, resp.Code)
		}
	})
}

func TestListEndpoints(t *testing.T) {
	r := setupTestRouter(t)
	doJSON(t, r, "POST", "/models/register", `{"name":"gemini"}`)
	doJSON(t, r, "POST", "/models/gemini/versions/register", `{"version":"1.0.0"}`)
	doJSON(t, r, "POST", "/models/gemini/versions/register", `{"version":"1.1.0"}`)

	w, resp := doJSON(t, r, "GET", "/models", "")
	if w.Code != http.StatusOK || resp.Code != httpx.CodeSuccess {
		t.Fatalf("unexpected response: status=%d code=%d", w.Code, resp.Code)
	}

	w, _ = doJSON(t, r, "GET", "/models/gemini/versions", "")
	if w.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", w.Code)
	}
	var listResp struct {
		Data struct {
			Total int64 `json:"total"`
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &listResp); err != nil {
		t.Fatal(err)
	}
	if listResp.Data.Total != 2 {
		t.Errorf("expected 2 versions, got %d", listResp.Data.Total)
	}
}

func TestUpdateStatusEndpoint(t *testing.T) {
	r := setupTestRouter(t)
	doJSON(t, r, "POST", "/models/register", `{"name":"gemini"}`)
	doJSON(t, r, "POST", "/models/gemini/versions/register", `{"version":"1.0.0"}`)

	w, resp := doJSON(t, r, "POST", "/models/gemini/versions/status", `{"version":"1.0.0","status":"deprecated"}`)
	if w.Code != http.StatusOK || resp.Code != httpx.CodeSuccess {
		t.Fatalf("unexpected response: status=%d code=%d", w.Code, resp.Code)
	}

	w, resp = doJSON(t, r, "POST", "/models/gemini/versions/status", `{"version":"1.0.0","status":"retired"}`)
	if w.Code != http.StatusBadRequest || resp.Code != httpx.CodeParamIllegal {
		t.Errorf("expected 400/param illegal, got status=%d code=%d", w.Code, resp.Code)
	}
}
