package app

import (
	"bytes"
	"os"
	"sync"
	"testing"

	"github.com/specialistvlad/scenegrid/internal/hcl_adapter"
)

// SafeBuffer is a thread-safe buffer for capturing log output in tests.
type SafeBuffer struct {
	b  bytes.Buffer
	mu sync.Mutex
}

func (b *SafeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.Write(p)
}

func (b *SafeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.String()
}

// SetupAppTest creates a new app instance for system testing. Logs and
// results share one buffer, printed on cleanup when SCENEGRID_TEST_LOGS is
// "true".
func SetupAppTest(t *testing.T, appConfig *Config, opts ...Option) (*App, *SafeBuffer) {
	t.Helper()

	buf := &SafeBuffer{}
	if appConfig.LogLevel == "" {
		appConfig.LogLevel = "debug"
	}
	testApp, err := NewApp(buf, appConfig, hcl_adapter.NewLoader(), opts...)
	if err != nil {
		t.Fatalf("failed to create app: %v", err)
	}

	t.Cleanup(func() {
		if os.Getenv("SCENEGRID_TEST_LOGS") == "true" {
			t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), buf.String())
		}
	})

	return testApp, buf
}
