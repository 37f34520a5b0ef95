// File: internal/observability/testing.go
package observability

import (
	"testing"

	"go.uber.org/zap/zapcore"

	"github.com/xkilldash9x/raccoon-cli/internal/config"
)

// testWriter adapts testing.T to zapcore's writer so log output lands in the
// test log instead of stdout.
type testWriter struct {
	t *testing.T
}

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Log(string(p))
	return len(p), nil
}

func (w testWriter) Sync() error { return nil }

// SetupTest initializes a console-only debug logger bound to t and restores
// the global logger state when the test finishes. No log file is configured
// so tests never spawn rotation goroutines.
func SetupTest(t *testing.T) {
	t.Helper()
	ResetForTest()
	Initialize(config.LoggerConfig{
		Level:       "debug",
		Format:      "console",
		ServiceName: "raccoon-test",
	}, zapcore.Lock(testWriter{t: t}))
	t.Cleanup(ResetForTest)
}
