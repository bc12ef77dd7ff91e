package core

import (
	"context"
	"strings"
)

// RecordCounter forwards a counter increment to the configured metrics
// recorder. Safe to call with no recorder wired.
func (s *Service) RecordCounter(ctx context.Context, name string, value int64, tags map[string]string) {
	if s == nil || s.metricsRecorder == nil {
		return
	}
	s.metricsRecorder.IncCounter(ctx, strings.TrimSpace(name), value, cloneTags(tags))
}

// ObserveHistogram forwards an observation to the configured metrics
// recorder. Safe to call with no recorder wired.
func (s *Service) ObserveHistogram(ctx context.Context, name string, value float64, tags map[string]string) {
	if s == nil || s.metricsRecorder == nil {
		return
	}
	s.metricsRecorder.ObserveHistogram(ctx, strings.TrimSpace(name), value, cloneTags(tags))
}

func (s *Service) Metrics() MetricsRecorder {
	if s == nil || s.metricsRecorder == nil {
		return NopMetricsRecorder{}
	}
	return s.metricsRecorder
}

func cloneTags(tags map[string]string) map[string]string {
	if len(tags) == 0 {
		return map[string]string{}
	}
	copied := make(map[string]string, len(tags))
	for key, value := range tags {
		copied[key] = value
	}
	return copied
}
