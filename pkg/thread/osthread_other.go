//go:build !linux && !windows

package thread

import (
	"bytes"
	"runtime"
	"strconv"
)

// osThreadID falls back to the goroutine id where the platform has no cheap
// thread id call. A pinned goroutine maps one-to-one onto its thread.
func osThreadID() int64 {
	var buf [64]byte
	b := buf[:runtime.Stack(buf[:], false)]
	b = bytes.TrimPrefix(b, []byte("goroutine "))
	if i := bytes.IndexByte(b, ' '); i > 0 {
		b = b[:i]
	}

	id, err := strconv.ParseInt(string(b), 10, 64)
	if err != nil {
		return 0
	}

	return id
}
