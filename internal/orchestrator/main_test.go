// File: internal/orchestrator/main_test.go
package orchestrator_test

import (
	"testing"

	"go.uber.org/goleak"
)

// TestMain verifies the loop leaves no goroutines behind.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}
