package api

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skyspect/inspection/pkg/core"
)

func testReportFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "Deck_Sweep_20260601_100000.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"formatVersion":1}`), 0644))
	return path
}

func TestHealthcheck(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/healthcheck" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := New(srv.URL, "secret")
	assert.NoError(t, c.Healthcheck())
}

func TestHealthcheckFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := New(srv.URL, "secret")
	assert.Error(t, c.Healthcheck())
}

func TestUploadSendsFormFields(t *testing.T) {
	var gotFields map[string]string
	var gotFilename string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/inspections/add", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1 << 20))

		gotFields = map[string]string{}
		for key, vals := range r.MultipartForm.Value {
			if len(vals) > 0 {
				gotFields[key] = vals[0]
			}
		}
		if files := r.MultipartForm.File["file"]; len(files) > 0 {
			gotFilename = files[0].Filename
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	mission := &core.Mission{
		ID:   "m-007",
		Name: "Deck Sweep",
		Site: core.Site{Name: "Main Street Bridge"},
		Tag:  "bridge",
	}
	report := &core.Report{
		TotalAnomalies: 3,
		BySeverity:     map[string]int{"critical": 1, "low": 2},
	}

	c := New(srv.URL, "hunter2")
	require.NoError(t, c.Upload(testReportFile(t), mission, report))

	assert.Equal(t, "hunter2", gotFields["secret"])
	assert.Equal(t, "m-007", gotFields["missionId"])
	assert.Equal(t, "Deck Sweep", gotFields["missionName"])
	assert.Equal(t, "Main Street Bridge", gotFields["siteName"])
	assert.Equal(t, "3", gotFields["totalAnomalies"])
	assert.Equal(t, "1", gotFields["criticalAnomalies"])
	assert.Equal(t, "Deck_Sweep_20260601_100000.json", gotFilename)
}

func TestUploadRejectedStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	c := New(srv.URL, "wrong")
	err := c.Upload(testReportFile(t), &core.Mission{}, &core.Report{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
}

func TestUploadMissingFile(t *testing.T) {
	c := New("http://localhost:1", "secret")
	assert.Error(t, c.Upload("/nonexistent/file.json", &core.Mission{}, &core.Report{}))
}
