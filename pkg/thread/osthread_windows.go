//go:build windows

package thread

import "golang.org/x/sys/windows"

func osThreadID() int64 {
	return int64(windows.GetCurrentThreadId())
}
