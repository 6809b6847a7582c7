package storage

import (
	"context"
	"testing"
	"time"
)

// testContext bounds integration calls so an unreachable database fails fast
func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	return ctx
}
