// Package testkit holds helpers shared by package tests. Importing it marks
// the process as running under test so binaries skip their startup.
package testkit

import (
	"io"
	"log/slog"
	"os"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

// TestModeEnv is read by the binaries' main functions.
const TestModeEnv = "BACKOFFICE_TEST_MODE"

func init() {
	_ = os.Setenv(TestModeEnv, "1")
}

// Redis starts an in-memory Redis server and returns a client bound to it.
// Both are torn down when the test ends.
func Redis(t testing.TB) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

// RequiredEnv sets the secrets configuration refuses to start without.
func RequiredEnv(t testing.TB) {
	t.Helper()
	t.Setenv("SESSION_SECRET", "test-session-secret")
	t.Setenv("CSRF_SECRET", "test-csrf-secret")
}

// Logger discards output.
func Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
