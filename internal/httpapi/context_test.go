package httpapi

import (
	"context"
	"testing"
	"time"
)

func TestJoinContexts_CancelsWhenEitherDone(t *testing.T) {
	a, cancelA := context.WithCancel(context.Background())
	defer cancelA()
	b := context.Background()
	ctx, cancel := joinContexts(a, b)
	defer cancel()
	cancelA()
	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatalf("joined context not canceled")
	}
}

func TestSetBaseContext_NilResets(t *testing.T) {
	SetBaseContext(nil)
	if serverBaseCtx != context.Background() {
		t.Fatalf("expected background context")
	}
}

func TestSetMaxBodyBytes_Defaults(t *testing.T) {
	SetMaxBodyBytes(0)
	if maxBodyBytes != 16<<20 {
		t.Fatalf("maxBodyBytes=%d", maxBodyBytes)
	}
	SetMaxBodyBytes(10)
	if maxBodyBytes != 10 {
		t.Fatalf("maxBodyBytes=%d", maxBodyBytes)
	}
	SetMaxBodyBytes(0)
	SetLoadTimeout(-time.Second)
	if loadTimeout != 0 {
		t.Fatalf("loadTimeout=%v", loadTimeout)
	}
}
