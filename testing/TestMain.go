// Package testing prepares the process environment for test binaries. Import
// it for side effects from any test that may reach app.LoadConfig or a main
// package.
package testing

import (
	"os"
	"sync"
	stdtesting "testing"
)

// defaults are applied only when the variable is unset.
var defaults = map[string]string{
	"KYYUP_TEST_MODE": "1",
	"JWT_SECRET":      "kyyup-test-secret-0123456789abcdef",
	"APP_ENV":         "test",
}

var prepare = sync.OnceFunc(func() {
	for key, value := range defaults {
		if _, ok := os.LookupEnv(key); !ok {
			_ = os.Setenv(key, value)
		}
	}
})

func init() {
	prepare()
}

// TestMain runs m with the test environment in place.
func TestMain(m *stdtesting.M) {
	prepare()
	os.Exit(m.Run())
}
