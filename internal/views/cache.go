package views

import (
	"bytes"
	"context"
	"encoding/gob"
	"errors"

	"github.com/dgraph-io/badger/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("partwatch/internal/views")

var errEntryNotFound = badger.ErrKeyNotFound

// Cache keeps the classified rows of every (category, run) pair in memory along with
// the categories each run covered. Entries never expire, a run id only ever names one
// snapshot. Invalidate drops everything.
type Cache struct {
	db *badger.DB
}

func NewCache() (*Cache, error) {
	opts := badger.DefaultOptions("").
		WithInMemory(true).
		WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &Cache{db: db}, nil
}

func (c *Cache) Close() error {
	return c.db.Close()
}

func entriesKey(category, runId string) string {
	return "entries:" + category + ":" + runId
}

func categoriesKey(runId string) string {
	return "categories:" + runId
}

func (c *Cache) get(ctx context.Context, category, runId string) ([]Entry, error) {
	var entries []Entry
	err := c.read(ctx, entriesKey(category, runId), &entries)
	return entries, err
}

func (c *Cache) set(ctx context.Context, category, runId string, entries []Entry) error {
	return c.write(ctx, entriesKey(category, runId), entries)
}

// categories returns the shown categories of a run in the order they were crawled.
func (c *Cache) categories(ctx context.Context, runId string) ([]string, error) {
	var categories []string
	err := c.read(ctx, categoriesKey(runId), &categories)
	return categories, err
}

func (c *Cache) setCategories(ctx context.Context, runId string, categories []string) error {
	return c.write(ctx, categoriesKey(runId), categories)
}

func (c *Cache) read(ctx context.Context, key string, out any) error {
	_, span := tracer.Start(ctx, "cache.get", trace.WithAttributes(attribute.String("cache_key", key)))
	defer span.End()

	var serialized []byte
	err := c.db.View(func(tx *badger.Txn) error {
		item, err := tx.Get([]byte(key))
		if err != nil {
			return err
		}
		serialized, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		span.SetStatus(codes.Ok, "CACHE MISS")
		return errEntryNotFound
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to read item from badger")
		return err
	}

	err = gob.NewDecoder(bytes.NewReader(serialized)).Decode(out)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to deserialize cached item")
		return err
	}
	span.SetAttributes(attribute.Int("bytes", len(serialized)))
	return nil
}

func (c *Cache) write(ctx context.Context, key string, value any) error {
	_, span := tracer.Start(ctx, "cache.set", trace.WithAttributes(attribute.String("cache_key", key)))
	defer span.End()

	var buf bytes.Buffer
	err := gob.NewEncoder(&buf).Encode(value)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to serialize item")
		return err
	}
	span.SetAttributes(attribute.Int("bytes", buf.Len()))

	err = c.db.Update(func(tx *badger.Txn) error {
		return tx.Set([]byte(key), buf.Bytes())
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to write item to badger")
		return err
	}
	return nil
}

// Invalidate drops every cached entry, it is called after a new snapshot is stored.
func (c *Cache) Invalidate() error {
	return c.db.DropAll()
}
