package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/irdash/backend/internal/application/dashboard"
	"github.com/irdash/backend/internal/domain/gateway"
	"github.com/irdash/backend/internal/infrastructure/persistence"
	"github.com/irdash/backend/internal/interfaces/http/middleware"
)

func init() {
	gin.SetMode(gin.TestMode)
	middleware.SetupValidator()
}

var testTables = []string{
	`CREATE TABLE person (
		id TEXT PRIMARY KEY, email TEXT, first_name TEXT, last_name TEXT, username TEXT,
		member_type TEXT, member_status TEXT, phone TEXT, linkedin_url TEXT,
		organization_id TEXT, short_bio TEXT,
		deleted BOOLEAN NOT NULL DEFAULT 0, created_at DATETIME, updated_at DATETIME)`,
	`CREATE TABLE item (
		id TEXT PRIMARY KEY, type TEXT NOT NULL, title TEXT NOT NULL, status TEXT, sector TEXT,
		ticket_size NUMERIC,
		deleted BOOLEAN NOT NULL DEFAULT 0, created_at DATETIME, updated_at DATETIME)`,
	`CREATE TABLE commitment (
		id TEXT PRIMARY KEY, person_id TEXT NOT NULL, deal_id TEXT NOT NULL, ticket_count INTEGER NOT NULL,
		deleted BOOLEAN NOT NULL DEFAULT 0, created_at DATETIME, updated_at DATETIME)`,
}

// testEnv is a dashboard over an in-memory sqlite gateway.
type testEnv struct {
	t    *testing.T
	gw   *persistence.GormGateway
	dash *dashboard.Dashboard
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	for _, stmt := range testTables {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return &testEnv{
		t:    t,
		gw:   persistence.NewGormGateway(db, nil),
		dash: dashboard.NewDashboard(dashboard.NewVolumeStreamRegistry(), dashboard.WithLogger(zap.NewNop())),
	}
}

func (e *testEnv) start() {
	e.t.Helper()
	require.NoError(e.t, e.dash.Start(context.Background(), e.gw))
	e.t.Cleanup(e.dash.Stop)
}

func (e *testEnv) insert(collection string, row gateway.Row) string {
	e.t.Helper()
	out, err := e.gw.Insert(context.Background(), collection, row)
	require.NoError(e.t, err)
	return out[gateway.ColumnID].(string)
}

func (e *testEnv) seedPersons(n int) []string {
	ids := make([]string, 0, n)
	for i := 0; i < n; i++ {
		ids = append(ids, e.insert(gateway.CollectionPerson, gateway.Row{
			"email":       fmt.Sprintf("member%02d@example.com", i),
			"first_name":  fmt.Sprintf("Member%02d", i),
			"member_type": "Investor",
		}))
	}
	return ids
}

func (e *testEnv) seedDeal(title string, ticketSize int64) string {
	return e.insert(gateway.CollectionItem, gateway.Row{
		"type":        "Deal",
		"title":       title,
		"ticket_size": decimal.NewFromInt(ticketSize),
	})
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	Meta *struct {
		Total      int64 `json:"total"`
		Page       int   `json:"page"`
		PageSize   int   `json:"page_size"`
		TotalPages int   `json:"total_pages"`
	} `json:"meta"`
}

func perform(r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, data any) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	if data != nil && len(env.Data) > 0 {
		require.NoError(t, json.Unmarshal(env.Data, data))
	}
	return env
}

type pageBody[T any] struct {
	Rows       []T    `json:"rows"`
	Page       int    `json:"page"`
	TotalPages int    `json:"total_pages"`
	TotalRows  int64  `json:"total_rows"`
	State      string `json:"state"`
	Error      *struct {
		Code string `json:"code"`
	} `json:"error"`
}
