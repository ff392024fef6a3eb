package mindprovider

import (
	"context"
	"encoding/json"
	"testing"
)

func TestMockProviderReturnsRegisteredResponse(t *testing.T) {
	m := NewMockProvider()
	if err := m.SetResponse("why_trace", map[string]any{"status": "ok", "confidence": 0.9}); err != nil {
		t.Fatalf("SetResponse: %v", err)
	}

	res, err := m.Call(context.Background(), "why_trace.json", "prompt text", "why_trace")
	if err != nil {
		t.Fatalf("Call: %v", err)
	}

	var obj map[string]any
	if err := json.Unmarshal(res.Obj, &obj); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if obj["status"] != "ok" {
		t.Fatalf("expected status=ok, got %+v", obj)
	}
	if len(m.Calls) != 1 || m.Calls[0].Tag != "why_trace" {
		t.Fatalf("expected one recorded call for tag why_trace, got %+v", m.Calls)
	}
}

func TestMockProviderUnregisteredTagErrorsWithoutDefault(t *testing.T) {
	m := NewMockProvider()
	if _, err := m.Call(context.Background(), "x.json", "p", "unknown_tag"); err == nil {
		t.Fatalf("expected error for unregistered tag with no default")
	}
}
