package logging

import (
	"context"
	"testing"
)

func TestNewCallID(t *testing.T) {
	id := NewCallID()
	if len(id) != 8 {
		t.Errorf("NewCallID() length = %d, want 8", len(id))
	}
	if id == NewCallID() {
		t.Errorf("NewCallID() generated duplicate IDs: %s", id)
	}
}

func TestCallIDContext(t *testing.T) {
	ctx := context.Background()

	if got := CallID(ctx); got != "" {
		t.Errorf("CallID(empty context) = %q, want empty string", got)
	}

	ctx = WithCallID(ctx, "test1234")
	if got := CallID(ctx); got != "test1234" {
		t.Errorf("CallID() = %q, want test1234", got)
	}
}
