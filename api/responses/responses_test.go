package responses

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"

	pkgerrors "github.com/nimbusvr/trackshop-backend/pkg/errors"
	"github.com/nimbusvr/trackshop-backend/pkg/types"
)

func TestWriteSuccessEnvelope(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteSuccess(rec, map[string]string{"hello": "world"})

	if rec.Code != 200 {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var envelope types.SuccessEnvelope
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	data, ok := envelope.Data.(map[string]any)
	if !ok || data["hello"] != "world" {
		t.Fatalf("unexpected data %v", envelope.Data)
	}
}

func TestWriteErrorMapsCodeToStatus(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{pkgerrors.New(pkgerrors.CodeValidation, "bad input"), 400},
		{pkgerrors.New(pkgerrors.CodeSignature, "bad signature"), 401},
		{pkgerrors.New(pkgerrors.CodeNotFound, "missing"), 404},
		{pkgerrors.New(pkgerrors.CodeProvider, "gateway down"), 502},
		{errors.New("plain"), 500},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		WriteError(context.Background(), nil, rec, tc.err)
		if rec.Code != tc.status {
			t.Fatalf("expected %d for %v, got %d", tc.status, tc.err, rec.Code)
		}
	}
}

func TestWriteErrorIncludesValidationDetails(t *testing.T) {
	rec := httptest.NewRecorder()
	err := pkgerrors.New(pkgerrors.CodeValidation, "invalid edit").
		WithDetails(map[string]string{"numeroTrackers": "must be at least 1"})
	WriteError(context.Background(), nil, rec, err)

	var envelope types.ErrorEnvelope
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	details, ok := envelope.Error.Details.(map[string]any)
	if !ok {
		t.Fatalf("expected field details, got %v", envelope.Error.Details)
	}
	if message, _ := details["numeroTrackers"].(string); message == "" {
		t.Fatalf("expected message for numeroTrackers, got %v", details)
	}
	if envelope.Error.Message != "invalid edit" {
		t.Fatalf("validation messages must pass through, got %q", envelope.Error.Message)
	}
}

func TestWriteProviderAckIsAlways200(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteProviderAck(context.Background(), nil, rec, nil)
	if rec.Code != 200 {
		t.Fatalf("expected 200 on success, got %d", rec.Code)
	}
	var ack types.ProviderAck
	if err := json.Unmarshal(rec.Body.Bytes(), &ack); err != nil {
		t.Fatalf("decode ack: %v", err)
	}
	if ack.Status != "success" {
		t.Fatalf("expected success status, got %q", ack.Status)
	}

	rec = httptest.NewRecorder()
	WriteProviderAck(context.Background(), nil, rec, pkgerrors.New(pkgerrors.CodeSignature, "signature verification failed"))
	if rec.Code != 200 {
		t.Fatalf("failures must still answer 200, got %d", rec.Code)
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &ack); err != nil {
		t.Fatalf("decode ack: %v", err)
	}
	if ack.Status != "error" || ack.Reason == "" {
		t.Fatalf("expected error ack with reason, got %+v", ack)
	}
}
