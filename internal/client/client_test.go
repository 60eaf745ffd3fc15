package client

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/mohammad-safakhou/azadi/internal/httpclient"
	"github.com/mohammad-safakhou/azadi/models"
)

func TestClientRecommend(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/recommend-articles":
			if strings.Contains(string(body), "city") {
				t.Errorf("articles request carried a city: %s", body)
			}
			_, _ = w.Write([]byte(`{"recommendations":[{"title":"T","url":"https://a.com","source":"a.com","description":"D"}],"cached":true}`))
		case "/api/nearby-protests":
			if !strings.Contains(string(body), `"city":"Toronto"`) {
				t.Errorf("protest request missing city: %s", body)
			}
			_, _ = w.Write([]byte(`{"protests":[{"title":"March","when":"2026-11-01","website":"https://m.org","mapUrl":"","km":3}],"cached":false}`))
		case "/api/recommend-charities":
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte(`{"error":"Too many requests. Wait about a minute and try again."}`))
		}
	}))
	defer srv.Close()

	c := New(srv.URL+"/", nil)
	got, err := c.Recommend(context.Background(), models.KindArticles, []string{"#x"}, "Toronto")
	if err != nil {
		t.Fatalf("articles: %v", err)
	}
	if !got.Cached || len(got.Batch.Articles) != 1 || got.Batch.Articles[0].Description != "D" {
		t.Fatalf("articles = %+v", got)
	}

	got, err = c.Recommend(context.Background(), models.KindProtests, []string{"#x"}, "Toronto")
	if err != nil {
		t.Fatalf("protests: %v", err)
	}
	if len(got.Batch.Protests) != 1 || got.Batch.Protests[0].Km == nil || *got.Batch.Protests[0].Km != 3 {
		t.Fatalf("protests = %+v", got)
	}

	_, err = c.Recommend(context.Background(), models.KindCharities, []string{"#x"}, "")
	var se *httpclient.StatusError
	if !errors.As(err, &se) || se.Code != http.StatusBadGateway || !strings.HasPrefix(se.Message(), "Too many requests") {
		t.Fatalf("expected 502 StatusError, got %v", err)
	}
}

// gatedRecommender blocks each kind until its gate is released.
type gatedRecommender struct {
	mu    sync.Mutex
	gates map[models.Kind]chan struct{}
	calls int
	err   error
	empty bool
}

func newGated(kinds ...models.Kind) *gatedRecommender {
	g := &gatedRecommender{gates: make(map[models.Kind]chan struct{})}
	for _, k := range kinds {
		g.gates[k] = make(chan struct{})
	}
	return g
}

func (g *gatedRecommender) Recommend(ctx context.Context, kind models.Kind, _ []string, _ string) (Recommendations, error) {
	g.mu.Lock()
	g.calls++
	gate := g.gates[kind]
	g.mu.Unlock()
	if gate != nil {
		<-gate
	}
	if g.err != nil {
		return Recommendations{}, g.err
	}
	b := models.Batch{Kind: kind}
	if !g.empty {
		switch kind {
		case models.KindArticles:
			b.Articles = []models.Article{{Title: "Article result", URL: "https://a.com", Source: "a.com", Description: "d"}}
		case models.KindCharities:
			b.Charities = []models.Charity{{Name: "Charity result", URL: "https://c.org", Description: "d"}}
		}
	}
	return Recommendations{Batch: b}, nil
}

func TestPanelSwitchingKindsDropsStaleResponse(t *testing.T) {
	t.Parallel()
	rec := newGated(models.KindArticles)
	p := NewPanel(rec, nil)

	articlesDone := p.Open(context.Background(), models.KindArticles, []string{"#x"}, "")
	if !strings.Contains(p.View(), "Getting articles") {
		t.Fatalf("loading state not shown: %q", p.View())
	}
	charitiesDone := p.Open(context.Background(), models.KindCharities, []string{"#x"}, "")
	<-charitiesDone
	if !strings.Contains(p.View(), "Charity result") {
		t.Fatalf("charities not rendered: %q", p.View())
	}

	close(rec.gates[models.KindArticles])
	<-articlesDone
	if strings.Contains(p.View(), "Article result") {
		t.Fatalf("superseded articles response was applied: %q", p.View())
	}
}

func TestPanelReopeningSameKindShowsLatest(t *testing.T) {
	t.Parallel()
	rec := newGated()
	p := NewPanel(rec, nil)
	<-p.Open(context.Background(), models.KindArticles, []string{"#x"}, "")
	if !strings.Contains(p.View(), "[1] Article result") {
		t.Fatalf("view = %q", p.View())
	}
}

func TestPanelEmptyIssuesSkipsServer(t *testing.T) {
	t.Parallel()
	rec := newGated()
	p := NewPanel(rec, nil)
	<-p.Open(context.Background(), models.KindArticles, nil, "")
	if rec.calls != 0 {
		t.Fatalf("server was called for an empty issue set")
	}
	if !strings.HasPrefix(p.View(), "Watch a few videos") {
		t.Fatalf("view = %q", p.View())
	}
}

func TestPanelErrorAndEmptyMessages(t *testing.T) {
	t.Parallel()
	failing := newGated()
	failing.err = errors.New("boom")
	p := NewPanel(failing, nil)
	<-p.Open(context.Background(), models.KindArticles, []string{"#x"}, "")
	if p.View() != MessageError {
		t.Fatalf("view = %q", p.View())
	}

	empty := newGated()
	empty.empty = true
	p = NewPanel(empty, nil)
	<-p.Open(context.Background(), models.KindCharities, []string{"#x"}, "")
	if p.View() != MessageEmpty {
		t.Fatalf("view = %q", p.View())
	}
}
