package usecase

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/journal-portal/backend/internal/telemetry"
)

const meterName = "journal-portal/ojs"

// SyncMetrics counts sync outcomes. A nil *SyncMetrics records nothing.
type SyncMetrics struct {
	submissions metric.Int64Counter
	files       metric.Int64Counter
	exports     metric.Int64Counter
}

func NewSyncMetrics() *SyncMetrics {
	m := telemetry.Meter(meterName)
	submissions, _ := m.Int64Counter("ojs.import.submissions",
		metric.WithDescription("Remote submissions processed by import, by result"),
	)
	files, _ := m.Int64Counter("ojs.import.files",
		metric.WithDescription("Remote files processed by import, by result"),
	)
	exports, _ := m.Int64Counter("ojs.export.submissions",
		metric.WithDescription("Local submissions pushed to OJS, by result"),
	)
	return &SyncMetrics{submissions: submissions, files: files, exports: exports}
}

func (m *SyncMetrics) submission(ctx context.Context, result string) {
	if m == nil || m.submissions == nil {
		return
	}
	m.submissions.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}

func (m *SyncMetrics) file(ctx context.Context, result string, n int) {
	if m == nil || m.files == nil || n == 0 {
		return
	}
	m.files.Add(ctx, int64(n), metric.WithAttributes(attribute.String("result", result)))
}

func (m *SyncMetrics) export(ctx context.Context, result string) {
	if m == nil || m.exports == nil {
		return
	}
	m.exports.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}
