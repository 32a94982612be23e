// Package pipeline runs one crawl of the catalog end to end: login, crawl every
// category, extract the listings and store them as a single snapshot.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"partwatch/internal/catalog"
	"partwatch/internal/components/assert"
	"partwatch/internal/components/chrono"
	"partwatch/internal/components/telemetry"
	"partwatch/internal/metrics"
	"partwatch/internal/scrapers/cafe24"

	"github.com/google/uuid"
)

const (
	report_run      = "pipeline.run"
	report_category = "pipeline.category"
)

// DEFAULT_TIMEOUT is the wall clock limit of RunOnce when the caller does not set one.
const DEFAULT_TIMEOUT = 180 * time.Second

var (
	// ErrMissingCredentials means the login identifier or secret is not configured.
	ErrMissingCredentials = errors.New("pipeline: login credentials are not configured")
	// ErrRunInProgress means another run of the same pipeline has not finished.
	ErrRunInProgress = errors.New("pipeline: a run is already in progress")
)

type Credentials struct {
	Id     string `json:"id"`
	Secret string `json:"secret"`
}

// Sink is where snapshots end up.
type Sink interface {
	Append(ctx context.Context, snapshot catalog.Snapshot) error
}

// Invalidator is told whenever a new snapshot was stored.
type Invalidator interface {
	Invalidate()
}

// CategoryResult is the outcome of crawling one category.
type CategoryResult struct {
	Category  catalog.Category
	Products  int
	Skipped   int
	Pages     int
	Truncated bool
	Err       error
}

type Result struct {
	RunId      string
	CapturedAt time.Time
	Products   int
	Categories []CategoryResult
}

type Options struct {
	BaseUrl     string
	Categories  []catalog.Category
	Credentials Credentials
}

type Pipeline struct {
	opts        Options
	sink        Sink
	invalidator Invalidator
	metrics     *metrics.Metrics

	time chrono.API
	tel  telemetry.API

	mu sync.Mutex
}

func New(opts Options, sink Sink, time chrono.API, tel telemetry.API) *Pipeline {
	assert.NotNil(sink)
	assert.NotNil(time)
	assert.NotNil(tel)
	assert.NotEmptyStr(opts.BaseUrl)

	if len(opts.Categories) == 0 {
		opts.Categories = catalog.DefaultCategories
	}

	return &Pipeline{
		opts: opts,
		sink: sink,
		time: time,
		tel:  tel,
	}
}

// WithInvalidator sets what is told about new snapshots.
func (p *Pipeline) WithInvalidator(inv Invalidator) *Pipeline {
	p.invalidator = inv
	return p
}

// WithMetrics records every run into m.
func (p *Pipeline) WithMetrics(m *metrics.Metrics) *Pipeline {
	p.metrics = m
	return p
}

// Run crawls every category once and appends the snapshot. Missing credentials, a failed
// login, a failed append and cancellation fail the run, a failing category does not.
func (p *Pipeline) Run(ctx context.Context) (Result, error) {
	return p.run(ctx, p.tel)
}

func (p *Pipeline) run(ctx context.Context, tel telemetry.API) (Result, error) {
	if !p.mu.TryLock() {
		return Result{}, ErrRunInProgress
	}
	defer p.mu.Unlock()

	tel = telemetry.NewScopedAPI("pipeline", tel)
	start := p.time.Now()

	result, err := p.crawl(ctx, tel)
	if p.metrics != nil {
		p.metrics.Run(start, p.time.Now().Sub(start), err == nil)
	}
	if err != nil {
		tel.ReportBroken(report_run, err)
		return result, err
	}
	return result, nil
}

func (p *Pipeline) crawl(ctx context.Context, tel telemetry.API) (Result, error) {
	if p.opts.Credentials.Id == "" || p.opts.Credentials.Secret == "" {
		return Result{}, ErrMissingCredentials
	}

	client, err := cafe24.NewClient(p.opts.BaseUrl, p.time, tel)
	if err != nil {
		return Result{}, fmt.Errorf("create client: %w", err)
	}

	err = client.Login(ctx, p.opts.Credentials.Id, p.opts.Credentials.Secret)
	if err != nil {
		return Result{}, err
	}

	result := Result{
		RunId:      uuid.NewString(),
		CapturedAt: p.time.Now().Truncate(time.Second),
	}
	tel.ReportDebug("start run", result.RunId, result.CapturedAt.Format(catalog.CAPTURED_AT_LAYOUT))

	var products []catalog.Product
	for i, category := range p.opts.Categories {
		if i > 0 {
			err = client.PauseCategory(ctx)
			if err != nil {
				return result, err
			}
		}

		crawled, categoryResult := p.crawlCategory(ctx, client, category, result.CapturedAt, tel)
		result.Categories = append(result.Categories, categoryResult)
		products = append(products, crawled...)

		// a timeout loses the whole run, nothing crawled so far is stored
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
	}

	snapshot := catalog.Snapshot{
		CapturedAt: result.CapturedAt,
		RunId:      result.RunId,
		Products:   products,
	}
	err = p.sink.Append(ctx, snapshot)
	if err != nil {
		return result, fmt.Errorf("append snapshot: %w", err)
	}
	result.Products = len(products)
	tel.ReportCount(report_run, int64(len(products)))

	if p.invalidator != nil {
		p.invalidator.Invalidate()
	}
	return result, nil
}

func (p *Pipeline) crawlCategory(
	ctx context.Context,
	client *cafe24.Client,
	category catalog.Category,
	capturedAt time.Time,
	tel telemetry.API,
) ([]catalog.Product, CategoryResult) {
	result := CategoryResult{Category: category}

	crawled, err := client.Crawl(ctx, category)
	result.Pages = crawled.Pages
	result.Truncated = crawled.Truncated
	if err != nil {
		result.Err = err
		tel.ReportWarning(report_category, err, category.Name)
	}

	var products []catalog.Product
	for _, frag := range crawled.Items {
		product, ok := cafe24.Extract(client.BaseUrl, frag, category.Name, capturedAt)
		if !ok {
			result.Skipped++
			continue
		}
		products = append(products, product)
	}
	result.Products = len(products)

	tel.ReportDebug(
		"crawled category",
		telemetry.KV{Key: "category", Value: category.Name},
		telemetry.KV{Key: "products", Value: result.Products},
		telemetry.KV{Key: "skipped", Value: result.Skipped},
		telemetry.KV{Key: "pages", Value: result.Pages},
	)
	if p.metrics != nil {
		p.metrics.Category(category.Name, result.Products, result.Pages, result.Truncated, result.Err != nil)
	}
	return products, result
}

// RunOnce runs the pipeline under a wall clock timeout and returns whether it stored a
// snapshot along with every report made during the run as text.
func (p *Pipeline) RunOnce(ctx context.Context, timeout time.Duration) (bool, string) {
	if timeout <= 0 {
		timeout = DEFAULT_TIMEOUT
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	capture := telemetry.NewCaptureAPI()
	_, err := p.run(ctx, telemetry.Tee{p.tel, capture})
	if err != nil {
		// errors that happen before anything is reported still belong in the log
		if errors.Is(err, ErrRunInProgress) {
			capture.ReportBroken(report_run, err)
		}
		return false, capture.String()
	}
	return true, capture.String()
}
