package persistence

import (
	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
)

// registerTracing installs the otelgorm plugin. Query variables are left out
// of span attributes since rows carry investor contact data.
func registerTracing(db *gorm.DB, tp trace.TracerProvider) error {
	return db.Use(otelgorm.NewPlugin(
		otelgorm.WithTracerProvider(tp),
		otelgorm.WithDBName("postgresql"),
		otelgorm.WithoutQueryVariables(),
	))
}
