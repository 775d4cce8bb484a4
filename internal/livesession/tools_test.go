package livesession

import (
	"context"
	"testing"
)

func noopHandler(ctx context.Context, args map[string]any) (map[string]any, error) {
	return nil, nil
}

func TestToolRegistry_Register(t *testing.T) {
	reg := NewToolRegistry()
	err := reg.Register(Tool{Name: "log_meal", ExpectsResponse: true, Handle: noopHandler})
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if reg.Len() != 1 {
		t.Errorf("expected 1 tool, got %d", reg.Len())
	}

	tool, ok := reg.Lookup("log_meal")
	if !ok {
		t.Fatal("registered tool not found")
	}
	if !tool.ExpectsResponse {
		t.Error("ExpectsResponse flag lost")
	}
}

func TestToolRegistry_RejectsInvalid(t *testing.T) {
	reg := NewToolRegistry()
	if err := reg.Register(Tool{Handle: noopHandler}); err == nil {
		t.Error("expected error for missing name")
	}
	if err := reg.Register(Tool{Name: "x"}); err == nil {
		t.Error("expected error for missing handler")
	}
}

func TestToolRegistry_RejectsDuplicate(t *testing.T) {
	reg := NewToolRegistry()
	reg.Register(Tool{Name: "log_meal", Handle: noopHandler})
	if err := reg.Register(Tool{Name: "log_meal", Handle: noopHandler}); err == nil {
		t.Error("expected error for duplicate registration")
	}
}

func TestToolRegistry_Declarations(t *testing.T) {
	reg := NewToolRegistry()
	reg.Register(Tool{
		Name:        "remember_user_details",
		Description: "store a detail about the user",
		Parameters:  map[string]string{"key": "string", "value": "string"},
		Handle:      noopHandler,
	})
	reg.Register(Tool{Name: "create_document", Handle: noopHandler})

	decls := reg.Declarations()
	if len(decls) != 2 {
		t.Fatalf("expected 2 declarations, got %d", len(decls))
	}
	byName := make(map[string]bool)
	for _, d := range decls {
		byName[d.Name] = true
	}
	if !byName["remember_user_details"] || !byName["create_document"] {
		t.Errorf("unexpected declarations %v", decls)
	}
}
