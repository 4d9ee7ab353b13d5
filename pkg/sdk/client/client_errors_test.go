package client

import (
	"encoding/json"
	"errors"
	"testing"

	"crushsim/internal/transport"
)

func TestDecodeHierarchyResultSuccess(t *testing.T) {
	raw, err := json.Marshal(transport.HierarchySuccess{
		Type: "hierarchy_success",
		Data: transport.BucketNode{Name: "root", Type: "bucket"},
	})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	got, err := decodeHierarchyResult[transport.HierarchySuccess](raw)
	if err != nil {
		t.Fatalf("decodeHierarchyResult: %v", err)
	}
	if got.Data.Name != "root" {
		t.Errorf("Data.Name = %q, want root", got.Data.Name)
	}
}

func TestDecodeHierarchyResultFailure(t *testing.T) {
	raw, err := json.Marshal(transport.HierarchyFail{Type: "hierarchy_fail", Data: "line 3: expected a bucket type"})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	_, err = decodeHierarchyResult[transport.HierarchySuccess](raw)
	if !errors.Is(err, ErrParseFailed) {
		t.Fatalf("expected ErrParseFailed, got %v", err)
	}
}
