//go:build darwin

package sampler

import (
	"bytes"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// New returns the macOS sampler
func New() Sampler {
	return &darwinSampler{}
}

type darwinSampler struct{}

func (s *darwinSampler) ActiveWindowTitle() (string, error) {
	// Window titles require accessibility permissions; the frontmost
	// application name is enough for activity tracking.
	script := `tell application "System Events" to get name of first application process whose frontmost is true`

	cmd := exec.Command("osascript", "-e", script)
	var out bytes.Buffer
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("osascript failed: %w", err)
	}
	return strings.TrimSpace(out.String()), nil
}

func (s *darwinSampler) IdleTime() (time.Duration, error) {
	cmd := exec.Command("ioreg", "-c", "IOHIDSystem")
	var out bytes.Buffer
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		return 0, fmt.Errorf("ioreg failed: %w", err)
	}

	for _, line := range strings.Split(out.String(), "\n") {
		if !strings.Contains(line, "HIDIdleTime") {
			continue
		}
		fields := strings.Fields(line)
		ns, err := strconv.ParseInt(fields[len(fields)-1], 10, 64)
		if err != nil {
			return 0, fmt.Errorf("failed to parse HIDIdleTime: %w", err)
		}
		return time.Duration(ns), nil
	}

	return 0, fmt.Errorf("HIDIdleTime not found in ioreg output")
}
