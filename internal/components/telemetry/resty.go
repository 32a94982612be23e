package telemetry

import (
	"context"
	"sync/atomic"

	"github.com/go-resty/resty/v2"
)

const report_http = "http.exchange"

type exchangeKey struct{}

func exchangeOf(req *resty.Request) uint64 {
	n, _ := req.Context().Value(exchangeKey{}).(uint64)
	return n
}

// InstrumentResty reports every exchange of client as debug and every transport
// failure as broken. Exchanges are numbered so a response can be matched to its request.
func InstrumentResty(client *resty.Client, tel API) {
	var seq atomic.Uint64

	client.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		n := seq.Add(1)
		req.SetContext(context.WithValue(req.Context(), exchangeKey{}, n))
		tel.ReportDebug(
			"http request",
			KV{Key: "n", Value: n},
			KV{Key: "method", Value: req.Method},
			KV{Key: "url", Value: req.URL},
		)
		return nil
	})
	client.OnAfterResponse(func(_ *resty.Client, res *resty.Response) error {
		tel.ReportDebug(
			"http response",
			KV{Key: "n", Value: exchangeOf(res.Request)},
			KV{Key: "status", Value: res.StatusCode()},
			KV{Key: "took", Value: res.Time()},
			KV{Key: "bytes", Value: res.Size()},
		)
		return nil
	})
	client.OnError(func(req *resty.Request, err error) {
		tel.ReportBroken(
			report_http,
			err,
			KV{Key: "n", Value: exchangeOf(req)},
			KV{Key: "method", Value: req.Method},
			KV{Key: "url", Value: req.URL},
		)
	})
}
