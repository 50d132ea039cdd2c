package app

import (
	"os"
	"strconv"
	"sync"
)

// InTestMode reports whether BACKOFFICE_TEST_MODE is set, in which case the
// binaries return before touching Postgres or Redis.
var InTestMode = sync.OnceValue(func() bool {
	on, _ := strconv.ParseBool(os.Getenv("BACKOFFICE_TEST_MODE"))
	return on
})
