package model

import (
	"encoding/json"
	"testing"
)

func TestJSONBValueAndScan(t *testing.T) {
	original := JSONB{"paper": "A4", "sides": 2}

	value, err := original.Value()
	if err != nil {
		t.Fatalf("Value() error: %v", err)
	}

	data, ok := value.([]byte)
	if !ok {
		t.Fatalf("expected []byte value, got %T", value)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal value error: %v", err)
	}

	if decoded["paper"] != "A4" {
		t.Fatalf("expected paper A4, got %v", decoded["paper"])
	}

	var scanned JSONB
	if err := scanned.Scan(data); err != nil {
		t.Fatalf("Scan() error: %v", err)
	}

	if scanned["paper"] != "A4" {
		t.Fatalf("expected scanned paper A4, got %v", scanned["paper"])
	}
}

func TestJSONBGormDataType(t *testing.T) {
	value := JSONB{"ok": true}
	if value.GormDataType() != "jsonb" {
		t.Fatalf("expected jsonb data type, got %q", value.GormDataType())
	}
}

func TestWorkflowStatusIsCancelled(t *testing.T) {
	cancelled := WorkflowStatus{Name: "Cancelled", Sequence: CancelledSequence}
	if !cancelled.IsCancelled() {
		t.Fatal("sequence 0 status should be the cancelled sentinel")
	}

	pending := WorkflowStatus{Name: "Pending", Sequence: 1}
	if pending.IsCancelled() {
		t.Fatal("sequence 1 status must not be the cancelled sentinel")
	}
}
