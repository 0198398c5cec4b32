package reporter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"sightline/internal/agent/config"
	"sightline/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fakeSampler struct {
	title    string
	titleErr error
	idle     time.Duration
	idleErr  error
}

func (s *fakeSampler) ActiveWindowTitle() (string, error) { return s.title, s.titleErr }
func (s *fakeSampler) IdleTime() (time.Duration, error)   { return s.idle, s.idleErr }

func testConfig(serverURL string) *config.Config {
	return &config.Config{
		Agent: config.AgentConfig{
			ID:                 "EMP001",
			DisplayName:        "Test Machine",
			ReportInterval:     time.Minute,
			ScreenshotInterval: 5 * time.Minute,
			Server: config.ServerConfig{
				Address:           serverURL,
				ClientSecret:      "test-secret",
				ReportTimeout:     5 * time.Second,
				ScreenshotTimeout: 5 * time.Second,
			},
		},
	}
}

func TestReportActivity(t *testing.T) {
	var got types.ActivityReport
	var secret string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/report", r.URL.Path)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		secret = r.Header.Get("X-Client-Secret")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	smp := &fakeSampler{title: "Editor", idle: 12 * time.Second}
	r := NewReporter(testConfig(srv.URL), smp, zaptest.NewLogger(t))

	require.NoError(t, r.ReportActivity(context.Background()))

	assert.Equal(t, "test-secret", secret)
	assert.Equal(t, "EMP001", got.EmployeeID)
	require.NotNil(t, got.ActiveWindow)
	assert.Equal(t, "Editor", *got.ActiveWindow)
	require.NotNil(t, got.SystemIdleTime)
	assert.Equal(t, 12, *got.SystemIdleTime)

	ts, err := time.Parse(time.RFC3339, got.TimestampUTC)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().UTC(), ts, time.Minute)
}

func TestReportActivitySamplerFailure(t *testing.T) {
	var got types.ActivityReport

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	smp := &fakeSampler{
		titleErr: fmt.Errorf("window manager unavailable"),
		idleErr:  fmt.Errorf("no input device"),
	}
	r := NewReporter(testConfig(srv.URL), smp, zaptest.NewLogger(t))

	// A broken platform API degrades the report, it does not fail it.
	require.NoError(t, r.ReportActivity(context.Background()))
	require.NotNil(t, got.ActiveWindow)
	assert.Equal(t, "N/A (Error)", *got.ActiveWindow)
	require.NotNil(t, got.SystemIdleTime)
	assert.Equal(t, -1, *got.SystemIdleTime)
}

func TestReportActivityServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	r := NewReporter(testConfig(srv.URL), &fakeSampler{title: "x"}, zaptest.NewLogger(t))
	err := r.ReportActivity(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestReportIdentity(t *testing.T) {
	var got types.IdentityReport

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/report_identity", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	r := NewReporter(testConfig(srv.URL), &fakeSampler{}, zaptest.NewLogger(t))
	require.NoError(t, r.ReportIdentity(context.Background()))

	assert.Equal(t, "EMP001", got.EmployeeID)
	assert.Equal(t, "Test Machine", got.Name)
	assert.NotEmpty(t, got.TimestampUTC)
}

func TestReportScreenshot(t *testing.T) {
	var employeeID, timestamp, filename string
	var fileBytes []byte

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/upload_screenshot", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(10<<20))

		employeeID = r.FormValue("employee_id")
		timestamp = r.FormValue("timestamp_utc")

		file, header, err := r.FormFile("screenshot")
		require.NoError(t, err)
		defer file.Close()
		filename = header.Filename
		fileBytes, err = io.ReadAll(file)
		require.NoError(t, err)

		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	r := NewReporter(testConfig(srv.URL), &fakeSampler{}, zaptest.NewLogger(t))
	r.capture = func() ([]byte, error) {
		return []byte("fake-png-bytes"), nil
	}

	require.NoError(t, r.ReportScreenshot(context.Background()))

	assert.Equal(t, "EMP001", employeeID)
	assert.NotEmpty(t, timestamp)
	assert.Regexp(t, `^\d{8}_\d{6}_\d{6}\.png$`, filename)
	assert.Equal(t, []byte("fake-png-bytes"), fileBytes)
}

func TestReportScreenshotCaptureFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("upload must not be attempted when capture fails")
	}))
	defer srv.Close()

	r := NewReporter(testConfig(srv.URL), &fakeSampler{}, zaptest.NewLogger(t))
	r.capture = func() ([]byte, error) {
		return nil, fmt.Errorf("no active displays")
	}

	err := r.ReportScreenshot(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "capture")
}
