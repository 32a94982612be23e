package telemetry

import (
	"context"
	"fmt"
	"log/slog"
	"os"
)

// SlogAPI writes reports to the default slog logger. KV params become attributes,
// anything else is numbered.
type SlogAPI struct{}

func attrs(id string, params []any) []slog.Attr {
	out := make([]slog.Attr, 0, len(params)+1)
	if id != "" {
		out = append(out, slog.String("id", id))
	}
	for i, p := range params {
		switch p := p.(type) {
		case KV:
			out = append(out, slog.Any(p.Key, p.Value))
		case error:
			out = append(out, slog.String("err", p.Error()))
		default:
			out = append(out, slog.Any(fmt.Sprintf("p%d", i), p))
		}
	}
	return out
}

func emit(level slog.Level, msg string, attrs []slog.Attr) {
	slog.Default().LogAttrs(context.Background(), level, msg, attrs...)
}

func (SlogAPI) ReportBroken(id string, params ...any) {
	emit(slog.LevelError, "broken", attrs(id, params))
}

func (SlogAPI) ReportWarning(id string, params ...any) {
	emit(slog.LevelWarn, "warning", attrs(id, params))
}

func (SlogAPI) ReportDebug(msg string, params ...any) {
	emit(slog.LevelDebug, msg, attrs("", params))
}

func (SlogAPI) ReportCount(id string, count int64) {
	emit(slog.LevelInfo, "count", []slog.Attr{slog.String("id", id), slog.Int64("n", count)})
	recordCount(id, count)
}

// InitSlog installs the default slog handler, verbose enables debug reports.
func InitSlog(verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}
