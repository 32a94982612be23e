package telemetry

import (
	"strings"
	"sync"
)

// Report is a single report recorded by RecordingAPI.
type Report struct {
	Level  string
	Id     string
	Params []any
	Count  int64
}

// RecordingAPI keeps every report in memory so tests can assert on them.
type RecordingAPI struct {
	mu      sync.Mutex
	Reports []Report
}

func (r *RecordingAPI) add(report Report) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Reports = append(r.Reports, report)
}

func (r *RecordingAPI) ReportBroken(id string, params ...any) {
	r.add(Report{Level: "broken", Id: id, Params: params})
}

func (r *RecordingAPI) ReportWarning(id string, params ...any) {
	r.add(Report{Level: "warning", Id: id, Params: params})
}

func (r *RecordingAPI) ReportDebug(msg string, params ...any) {
	r.add(Report{Level: "debug", Id: msg, Params: params})
}

func (r *RecordingAPI) ReportCount(id string, count int64) {
	r.add(Report{Level: "count", Id: id, Count: count})
}

// Find returns the reports of the given level whose id ends with suffix.
func (r *RecordingAPI) Find(level, suffix string) []Report {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Report
	for _, report := range r.Reports {
		if report.Level == level && strings.HasSuffix(report.Id, suffix) {
			out = append(out, report)
		}
	}
	return out
}
