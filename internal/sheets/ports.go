package sheets

import (
	"context"

	"finclient/internal/aggregate"
)

// ReportWriter publishes the chart report to an outbound destination.
type ReportWriter interface {
	WriteReport(ctx context.Context, r aggregate.Report) error
}
