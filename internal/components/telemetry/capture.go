package telemetry

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// CaptureAPI records every report as a line of text, it is what a run's log output
// is built from.
type CaptureAPI struct {
	mu    sync.Mutex
	lines []string
	now   func() time.Time
}

func NewCaptureAPI() *CaptureAPI {
	return &CaptureAPI{now: time.Now}
}

func (c *CaptureAPI) write(level, id string, params []any) {
	var line strings.Builder
	line.WriteString(c.now().Format(time.TimeOnly))
	line.WriteString(" ")
	line.WriteString(level)
	line.WriteString(" ")
	line.WriteString(id)
	for _, p := range params {
		line.WriteString(" ")
		line.WriteString(fmt.Sprint(p))
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.lines = append(c.lines, line.String())
}

func (c *CaptureAPI) ReportBroken(id string, params ...any) {
	c.write("ERROR", id, params)
}

func (c *CaptureAPI) ReportWarning(id string, params ...any) {
	c.write("WARN", id, params)
}

func (c *CaptureAPI) ReportDebug(msg string, params ...any) {
	c.write("INFO", msg, params)
}

func (c *CaptureAPI) ReportCount(id string, count int64) {
	c.write("COUNT", id, []any{count})
}

// String returns the captured log, one report per line.
func (c *CaptureAPI) String() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return strings.Join(c.lines, "\n")
}
