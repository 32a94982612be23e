package telemetry

import (
	"fmt"
)

// API is what every component reports through. Implementations log, capture or
// record the reports, which lets tests assert on what a component said.
//
// note: fault injection point
type API interface {
	// ReportBroken reports a failure that needs someone to look at it.
	//
	// The id names the component that failed (`cafe24_scraper: client.login`), not the
	// line that failed. Details go into params, or into the error via fmt.Errorf.
	// Ids are lowercase, underscores join words of a component and dashes join a
	// method to its component.
	ReportBroken(id string, params ...any)

	// ReportWarning reports something that did not fail the operation but is worth a
	// look, like a truncated crawl or one category failing while the others succeed.
	ReportWarning(id string, params ...any)

	// ReportDebug reports progress, it is hidden unless verbose logging is on.
	ReportDebug(msg string, params ...any)

	// ReportCount reports the value of a counter at this point in time. Successive
	// reports of the same id are samples, not increments.
	ReportCount(id string, count int64)
}

// ScopedAPI prefixes every id with a namespace, so `NewScopedAPI("store", tel)`
// turns `db.query` into `store: db.query`.
type ScopedAPI struct {
	namespace string
	inner     API
}

func NewScopedAPI(namespace string, inner API) ScopedAPI {
	return ScopedAPI{namespace: namespace, inner: inner}
}

func (s ScopedAPI) scoped(id string) string {
	return s.namespace + ": " + id
}

func (s ScopedAPI) ReportBroken(id string, params ...any) {
	s.inner.ReportBroken(s.scoped(id), params...)
}

func (s ScopedAPI) ReportWarning(id string, params ...any) {
	s.inner.ReportWarning(s.scoped(id), params...)
}

func (s ScopedAPI) ReportDebug(msg string, params ...any) {
	s.inner.ReportDebug(s.scoped(msg), params...)
}

func (s ScopedAPI) ReportCount(id string, count int64) {
	s.inner.ReportCount(s.scoped(id), count)
}

// KV is a named param, formatted as `key=value` by every API implementation.
type KV struct {
	Key   string
	Value any
}

func (kv KV) String() string {
	return fmt.Sprintf("%s=%v", kv.Key, kv.Value)
}

// Tee fans every report out to all the given APIs in order.
type Tee []API

func (t Tee) ReportBroken(id string, params ...any) {
	for _, api := range t {
		api.ReportBroken(id, params...)
	}
}

func (t Tee) ReportWarning(id string, params ...any) {
	for _, api := range t {
		api.ReportWarning(id, params...)
	}
}

func (t Tee) ReportDebug(msg string, params ...any) {
	for _, api := range t {
		api.ReportDebug(msg, params...)
	}
}

func (t Tee) ReportCount(id string, count int64) {
	for _, api := range t {
		api.ReportCount(id, count)
	}
}
