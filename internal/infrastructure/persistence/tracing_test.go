package persistence

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func TestRegisterTracing_SpansFollowStatementContext(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	defer func() { _ = tp.Shutdown(context.Background()) }()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	defer sqlDB.Close()

	require.NoError(t, registerTracing(db, tp))
	require.NoError(t, db.Exec("CREATE TABLE notes (title TEXT)").Error)

	ctx, parent := tp.Tracer("test").Start(context.Background(), "sign in")
	require.NoError(t, db.WithContext(ctx).Exec("INSERT INTO notes (title) VALUES (?)", "Secret Fund").Error)
	var count int64
	require.NoError(t, db.WithContext(ctx).Raw("SELECT count(*) FROM notes WHERE title = ?", "Secret Fund").Scan(&count).Error)
	parent.End()
	assert.Equal(t, int64(1), count)

	var children []sdktrace.ReadOnlySpan
	for _, s := range recorder.Ended() {
		if s.Parent().SpanID() == parent.SpanContext().SpanID() {
			children = append(children, s)
		}
	}
	require.Len(t, children, 2)
	for _, s := range children {
		assert.Equal(t, parent.SpanContext().TraceID(), s.SpanContext().TraceID())
		for _, kv := range s.Attributes() {
			assert.False(t, strings.Contains(kv.Value.Emit(), "Secret Fund"), "attribute %s leaks a query variable", kv.Key)
		}
	}
}
