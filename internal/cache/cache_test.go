package cache

import (
	"context"
	"reflect"
	"testing"
	"time"

	json "github.com/goccy/go-json"

	"github.com/mohammad-safakhou/azadi/internal/issues"
	"github.com/mohammad-safakhou/azadi/models"
)

func sampleBatch() models.Batch {
	return models.Batch{
		Kind: models.KindArticles,
		Articles: []models.Article{
			{Title: "Land and food", URL: "https://www.bbc.com/news/a", Source: "bbc.com", Description: "Farmers organise."},
		},
	}
}

func TestCacheHitIsByteIdentical(t *testing.T) {
	ctx := context.Background()
	c := New(models.KindArticles, 5*time.Minute, NewMemory(0))
	key := issues.Fingerprint([]string{"#x — a", "#y — b"})
	batch := sampleBatch()

	if err := c.Put(ctx, key, batch); err != nil {
		t.Fatalf("Put: %v", err)
	}
	want, _ := json.Marshal(batch)
	raw, ok, err := c.GetRaw(ctx, key)
	if err != nil || !ok {
		t.Fatalf("GetRaw ok=%v err=%v", ok, err)
	}
	if string(raw) != string(want) {
		t.Fatalf("raw payload = %s, want %s", raw, want)
	}
	got, ok, _ := c.Get(ctx, key)
	if !ok || !reflect.DeepEqual(got, batch) {
		t.Fatalf("Get = %+v, want %+v", got, batch)
	}
}

func TestCacheKindsAreIsolated(t *testing.T) {
	ctx := context.Background()
	store := NewMemory(0)
	articles := New(models.KindArticles, time.Minute, store)
	charities := New(models.KindCharities, time.Minute, store)
	_ = articles.Put(ctx, "k", sampleBatch())

	if _, ok, _ := charities.Get(ctx, "k"); ok {
		t.Fatalf("charities cache served an articles entry")
	}
}

func TestCacheRefusesEmpty(t *testing.T) {
	ctx := context.Background()
	c := New(models.KindArticles, time.Minute, NewMemory(0))
	if err := c.Put(ctx, issues.EmptyKey, sampleBatch()); err == nil {
		t.Fatalf("expected error storing EmptyKey")
	}
	if err := c.Put(ctx, "k", models.Batch{Kind: models.KindArticles}); err == nil {
		t.Fatalf("expected error storing empty batch")
	}
	if _, ok, _ := c.Get(ctx, issues.EmptyKey); ok {
		t.Fatalf("EmptyKey must never hit")
	}
}
