package reporter

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"sightline/internal/agent/capture"
	"sightline/internal/agent/config"
	"sightline/internal/agent/sampler"
	"sightline/internal/types"
	"sightline/internal/utils"
	"sightline/internal/version"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// Sampling failure placeholders. A broken platform API degrades the
// report instead of aborting it.
const (
	errorWindowTitle = "N/A (Error)"
	errorIdleSeconds = -1
)

// Reporter builds and sends reports to the collector. Every send is
// bounded by its own timeout and failures are returned to the caller,
// never retried here.
type Reporter struct {
	config  *config.Config
	logger  *zap.Logger
	client  *resty.Client
	sampler sampler.Sampler
	capture func() ([]byte, error)
}

// NewReporter creates new reporter
func NewReporter(cfg *config.Config, smp sampler.Sampler, logger *zap.Logger) *Reporter {
	client := resty.New().
		SetBaseURL(cfg.Agent.Server.Address).
		SetHeader("X-Client-Secret", cfg.Agent.Server.ClientSecret).
		SetHeader("User-Agent", "sightline-agent/"+version.GetInfo().Version)

	return &Reporter{
		config:  cfg,
		logger:  logger,
		client:  client,
		sampler: smp,
		capture: capture.Capture,
	}
}

// ReportIdentity sends the agent identity to the collector.
func (r *Reporter) ReportIdentity(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, r.config.Agent.Server.ReportTimeout)
	defer cancel()

	payload := types.IdentityReport{
		EmployeeID:   r.config.Agent.ID,
		Name:         r.config.Agent.DisplayName,
		TimestampUTC: time.Now().UTC().Format(time.RFC3339),
	}

	resp, err := r.client.R().
		SetContext(ctx).
		SetBody(payload).
		Post("/api/report_identity")
	if err != nil {
		return fmt.Errorf("failed to send identity report: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("server returned status %d: %s", resp.StatusCode(), resp.String())
	}

	r.logger.Info("Identity report sent",
		zap.String("agent_id", payload.EmployeeID),
		zap.String("display_name", payload.Name))
	return nil
}

// ReportActivity samples the current activity state and sends it.
func (r *Reporter) ReportActivity(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, r.config.Agent.Server.ReportTimeout)
	defer cancel()

	window, idle := r.sampleActivity()

	payload := types.ActivityReport{
		EmployeeID:     r.config.Agent.ID,
		TimestampUTC:   time.Now().UTC().Format(time.RFC3339),
		ActiveWindow:   &window,
		SystemIdleTime: &idle,
	}

	resp, err := r.client.R().
		SetContext(ctx).
		SetBody(payload).
		Post("/api/report")
	if err != nil {
		return fmt.Errorf("failed to send activity report: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("server returned status %d: %s", resp.StatusCode(), resp.String())
	}

	r.logger.Debug("Activity report sent",
		zap.String("active_window", window),
		zap.Int("idle_seconds", idle))
	return nil
}

// ReportScreenshot captures the primary display and uploads it.
func (r *Reporter) ReportScreenshot(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, r.config.Agent.Server.ScreenshotTimeout)
	defer cancel()

	img, err := r.capture()
	if err != nil {
		return fmt.Errorf("failed to capture screenshot: %w", err)
	}

	now := time.Now().UTC()
	filename := utils.ScreenshotFilename(now, "screenshot.png")

	resp, err := r.client.R().
		SetContext(ctx).
		SetFileReader("screenshot", filename, bytes.NewReader(img)).
		SetFormData(map[string]string{
			"employee_id":   r.config.Agent.ID,
			"timestamp_utc": now.Format(time.RFC3339),
		}).
		Post("/api/upload_screenshot")
	if err != nil {
		return fmt.Errorf("failed to upload screenshot: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("server returned status %d: %s", resp.StatusCode(), resp.String())
	}

	r.logger.Info("Screenshot uploaded",
		zap.String("filename", filename),
		zap.Int("bytes", len(img)))
	return nil
}

// sampleActivity reads the window title and idle time, substituting
// placeholders when the platform call fails.
func (r *Reporter) sampleActivity() (string, int) {
	window, err := r.sampler.ActiveWindowTitle()
	if err != nil {
		r.logger.Warn("Failed to get active window title", zap.Error(err))
		window = errorWindowTitle
	}

	idleSeconds := errorIdleSeconds
	if idle, err := r.sampler.IdleTime(); err != nil {
		r.logger.Warn("Failed to get idle time", zap.Error(err))
	} else {
		idleSeconds = int(idle.Seconds())
	}

	return window, idleSeconds
}
