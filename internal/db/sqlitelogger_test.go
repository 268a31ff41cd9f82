package db

import (
	"context"
	"database/sql"
	"log/slog"
	"sync"
	"testing"
)

// captureHandler records log records for assertion in tests.
type captureHandler struct {
	mu   sync.Mutex
	recs []map[string]slog.Value
}

func (h *captureHandler) Enabled(_ context.Context, _ slog.Level) bool { return true }

func (h *captureHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	m := map[string]slog.Value{"msg": slog.StringValue(r.Message)}
	r.Attrs(func(a slog.Attr) bool {
		m[a.Key] = a.Value
		return true
	})
	h.recs = append(h.recs, m)
	return nil
}

func (h *captureHandler) WithAttrs(_ []slog.Attr) slog.Handler { return h }

func (h *captureHandler) WithGroup(_ string) slog.Handler { return h }

func (h *captureHandler) sqlRecords(op string) []map[string]slog.Value {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []map[string]slog.Value
	for _, m := range h.recs {
		if m["msg"].String() == "sql" && m["op"].String() == op {
			out = append(out, m)
		}
	}
	return out
}

func TestLoggingConnector_ExecAndQueryLogged(t *testing.T) {
	handler := &captureHandler{}
	db := sql.OpenDB(NewLoggingConnector(":memory:", slog.New(handler)))
	defer func() { _ = db.Close() }()
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`CREATE TABLE archive (dateTime INTEGER PRIMARY KEY, rain REAL)`); err != nil {
		t.Fatalf("create table: %v", err)
	}
	if _, err := db.Exec(`INSERT INTO archive (dateTime, rain) VALUES (?, ?)`, 1700000000, nil); err != nil {
		t.Fatalf("insert: %v", err)
	}

	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM archive WHERE dateTime > ?`, 0).Scan(&n); err != nil {
		t.Fatalf("query: %v", err)
	}
	if n != 1 {
		t.Fatalf("count = %d, want 1", n)
	}

	execs := handler.sqlRecords("exec")
	if len(execs) != 2 {
		t.Fatalf("exec records = %d, want 2", len(execs))
	}
	args := execs[1]["args"].Any().([]string)
	if len(args) != 2 || args[0] != "1700000000" || args[1] != "NULL" {
		t.Errorf("insert args = %v", args)
	}
	if _, ok := execs[1]["elapsed"]; !ok {
		t.Error("exec record missing elapsed")
	}

	queries := handler.sqlRecords("query")
	if len(queries) != 1 {
		t.Fatalf("query records = %d, want 1", len(queries))
	}
	if got := queries[0]["sql"].String(); got != `SELECT COUNT(*) FROM archive WHERE dateTime > ?` {
		t.Errorf("sql = %q", got)
	}
}

func TestLoggingConnector_ErrorLogged(t *testing.T) {
	handler := &captureHandler{}
	db := sql.OpenDB(NewLoggingConnector(":memory:", slog.New(handler)))
	defer func() { _ = db.Close() }()

	if _, err := db.Exec(`INSERT INTO missing VALUES (1)`); err == nil {
		t.Fatal("insert into missing table: want error")
	}

	handler.mu.Lock()
	defer handler.mu.Unlock()
	for _, m := range handler.recs {
		if _, ok := m["error"]; ok {
			return
		}
	}
	t.Error("no record carries the error")
}

func TestNewLoggingConnector_NilLoggerUsesDefault(t *testing.T) {
	c := NewLoggingConnector(":memory:", nil).(*loggingConnector)
	if c.logger != slog.Default() {
		t.Error("nil logger should fall back to slog.Default()")
	}
}

func TestFormatArg(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{in: nil, want: "NULL"},
		{in: []byte("abc"), want: "abc"},
		{in: int64(42), want: "42"},
		{in: 0.25, want: "0.25"},
	}
	for _, tt := range tests {
		if got := formatArg(tt.in); got != tt.want {
			t.Errorf("formatArg(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
