package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
)

func TestContextFieldsPropagate(t *testing.T) {
	var buf bytes.Buffer
	logg := New(Options{ServiceName: "test", Output: &buf})

	ctx := logg.WithProvider(context.Background(), "dlocalgo")
	ctx = logg.WithTransactionID(ctx, "D-1234")
	logg.Info(ctx, "reconcile.start")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode log entry: %v", err)
	}
	if entry["provider"] != "dlocalgo" {
		t.Fatalf("expected provider field, got %v", entry["provider"])
	}
	if entry["transaction_id"] != "D-1234" {
		t.Fatalf("expected transaction_id field, got %v", entry["transaction_id"])
	}
	if entry["service"] != "test" {
		t.Fatalf("expected service field, got %v", entry["service"])
	}
}

func TestErrorIncludesStack(t *testing.T) {
	var buf bytes.Buffer
	logg := New(Options{ServiceName: "test", Output: &buf})

	logg.Error(context.Background(), "boom", context.DeadlineExceeded)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode log entry: %v", err)
	}
	if entry["stack"] == nil || entry["stack"] == "" {
		t.Fatalf("expected stack field on error logs")
	}
}

func TestParseLevelFallsBackToInfo(t *testing.T) {
	if lvl := ParseLevel("nonsense"); lvl.String() != "info" {
		t.Fatalf("expected info, got %s", lvl)
	}
	if lvl := ParseLevel("debug"); lvl.String() != "debug" {
		t.Fatalf("expected debug, got %s", lvl)
	}
}
