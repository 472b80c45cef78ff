// Package debug routes the trace hooks of the scheduler and reactive
// packages into a structured logger.
package debug

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/recera/netgraph/pkg/reactive"
	"github.com/recera/netgraph/pkg/scheduler"
)

// EnableLogging sends scheduler and reactive traces to logger at debug level
func EnableLogging(logger *slog.Logger) {
	if logger == nil {
		DisableLogging()
		return
	}
	logFn := func(args ...interface{}) {
		logger.Debug(format(args...))
	}

	scheduler.SetDebugLog(logFn)
	reactive.SetDebugLog(logFn)
}

// DisableLogging removes the trace hooks
func DisableLogging() {
	scheduler.SetDebugLog(nil)
	reactive.SetDebugLog(nil)
}

// format joins args with spaces, like fmt.Println without the newline
func format(args ...interface{}) string {
	return strings.TrimSuffix(fmt.Sprintln(args...), "\n")
}
