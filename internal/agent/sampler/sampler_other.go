//go:build !windows && !darwin

package sampler

import "time"

// New returns the fallback sampler for platforms without a native backend
func New() Sampler {
	return &unsupportedSampler{}
}

type unsupportedSampler struct{}

func (s *unsupportedSampler) ActiveWindowTitle() (string, error) {
	return "N/A (Unsupported OS)", nil
}

func (s *unsupportedSampler) IdleTime() (time.Duration, error) {
	return 0, nil
}
