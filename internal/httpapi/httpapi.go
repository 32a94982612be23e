// Package httpapi serves the data the dashboard needs as json.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"partwatch/internal/catalog"
	"partwatch/internal/components/assert"
	"partwatch/internal/components/telemetry"
	"partwatch/internal/history"
	"partwatch/internal/views"

	"github.com/gorilla/mux"
)

const report_handler = "httpapi.handler"

const DEFAULT_SEARCH_LIMIT = 20

type Views interface {
	Catalog(ctx context.Context) (views.Catalog, error)
	Parts(ctx context.Context, model string) ([]string, error)
	Listings(ctx context.Context, model, part string) ([]views.Listing, error)
	Search(ctx context.Context, query string, limit int) ([]views.SearchHit, error)
	History(ctx context.Context) ([]history.DayChanges, error)
}

type Runner interface {
	RunOnce(ctx context.Context, timeout time.Duration) (bool, string)
}

type Options struct {
	Views      Views
	Runner     Runner
	RunTimeout time.Duration
	Metrics    http.Handler
}

type handler struct {
	opts Options
	tel  telemetry.API
}

// Router builds the routes of the api, the run endpoint is only mounted when a runner
// is given.
func Router(opts Options, tel telemetry.API) http.Handler {
	assert.NotNil(opts.Views)
	assert.NotNil(tel)

	h := handler{opts: opts, tel: telemetry.NewScopedAPI("httpapi", tel)}

	r := mux.NewRouter()
	r.HandleFunc("/catalog", h.catalog).Methods(http.MethodGet)
	r.HandleFunc("/models/{model}/parts", h.parts).Methods(http.MethodGet)
	r.HandleFunc("/models/{model}/parts/{part}", h.listings).Methods(http.MethodGet)
	r.HandleFunc("/search", h.search).Methods(http.MethodGet)
	r.HandleFunc("/history", h.history).Methods(http.MethodGet)
	if opts.Runner != nil {
		r.HandleFunc("/run", h.run).Methods(http.MethodPost)
	}
	if opts.Metrics != nil {
		r.Handle("/metrics", opts.Metrics).Methods(http.MethodGet)
	}
	r.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	return h.logMiddleware(r)
}

func (h handler) logMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.tel.ReportDebug(
			"request",
			telemetry.KV{Key: "method", Value: r.Method},
			telemetry.KV{Key: "url", Value: r.URL.String()},
			telemetry.KV{Key: "remote_addr", Value: r.RemoteAddr},
		)
		next.ServeHTTP(w, r)
	})
}

type errorBody struct {
	Error string `json:"error"`
}

func (h handler) write(w http.ResponseWriter, status int, body any) {
	w.Header().Set("content-type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	err := json.NewEncoder(w).Encode(body)
	if err != nil {
		h.tel.ReportBroken(report_handler, err, "encode response")
	}
}

func (h handler) fail(w http.ResponseWriter, err error) {
	if errors.Is(err, views.ErrNoSnapshot) {
		h.write(w, http.StatusNotFound, errorBody{Error: err.Error()})
		return
	}
	h.tel.ReportBroken(report_handler, err)
	h.write(w, http.StatusInternalServerError, errorBody{Error: err.Error()})
}

func (h handler) catalog(w http.ResponseWriter, r *http.Request) {
	c, err := h.opts.Views.Catalog(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	h.write(w, http.StatusOK, c)
}

func (h handler) parts(w http.ResponseWriter, r *http.Request) {
	parts, err := h.opts.Views.Parts(r.Context(), mux.Vars(r)["model"])
	if err != nil {
		h.fail(w, err)
		return
	}
	if parts == nil {
		parts = []string{}
	}
	h.write(w, http.StatusOK, parts)
}

func (h handler) listings(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	listings, err := h.opts.Views.Listings(r.Context(), vars["model"], vars["part"])
	if err != nil {
		h.fail(w, err)
		return
	}
	if listings == nil {
		listings = []views.Listing{}
	}
	h.write(w, http.StatusOK, listings)
}

func (h handler) search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		h.write(w, http.StatusBadRequest, errorBody{Error: "missing query parameter q"})
		return
	}
	limit := DEFAULT_SEARCH_LIMIT
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			h.write(w, http.StatusBadRequest, errorBody{Error: "limit must be a positive integer"})
			return
		}
		limit = parsed
	}

	hits, err := h.opts.Views.Search(r.Context(), query, limit)
	if err != nil {
		h.fail(w, err)
		return
	}
	if hits == nil {
		hits = []views.SearchHit{}
	}
	h.write(w, http.StatusOK, hits)
}

type changeBody struct {
	Name       string         `json:"name"`
	Kind       string         `json:"kind"`
	PrevPrice  string         `json:"prev_price,omitempty"`
	CurrPrice  string         `json:"curr_price,omitempty"`
	PrevStatus catalog.Status `json:"prev_status,omitempty"`
	CurrStatus catalog.Status `json:"curr_status,omitempty"`
	Delta      int            `json:"delta,omitempty"`
	Text       string         `json:"text"`
}

type dayBody struct {
	Date     string       `json:"date"`
	PrevDate string       `json:"prev_date"`
	Changes  []changeBody `json:"changes"`
}

func (h handler) history(w http.ResponseWriter, r *http.Request) {
	days, err := h.opts.Views.History(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}

	out := make([]dayBody, 0, len(days))
	for _, day := range days {
		body := dayBody{
			Date:     day.Date.Format(catalog.CAPTURED_AT_LAYOUT),
			PrevDate: day.PrevDate.Format(catalog.CAPTURED_AT_LAYOUT),
		}
		for _, c := range day.Changes {
			body.Changes = append(body.Changes, changeBody{
				Name:       c.Name,
				Kind:       c.Kind.String(),
				PrevPrice:  c.PrevPrice,
				CurrPrice:  c.CurrPrice,
				PrevStatus: c.PrevStatus,
				CurrStatus: c.CurrStatus,
				Delta:      c.Delta,
				Text:       history.Format(c),
			})
		}
		out = append(out, body)
	}
	h.write(w, http.StatusOK, out)
}

type runBody struct {
	Ok  bool   `json:"ok"`
	Log string `json:"log"`
}

func (h handler) run(w http.ResponseWriter, r *http.Request) {
	ok, log := h.opts.Runner.RunOnce(r.Context(), h.opts.RunTimeout)
	status := http.StatusOK
	if !ok {
		status = http.StatusBadGateway
	}
	h.write(w, status, runBody{Ok: ok, Log: log})
}
