package client

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/mohammad-safakhou/azadi/internal/helpers"
	"github.com/mohammad-safakhou/azadi/internal/issues"
	"github.com/mohammad-safakhou/azadi/internal/logging"
	"github.com/mohammad-safakhou/azadi/internal/supersede"
	"github.com/mohammad-safakhou/azadi/models"
)

const (
	MessageError = "Something went wrong. Try again."
	MessageEmpty = "No recommendations right now. Try again in a bit."
)

// Panel is the single slide-over view every recommendation kind renders
// into. Opening a kind supersedes whatever the panel was loading.
type Panel struct {
	rec  Recommender
	ctrl *supersede.Controller
	out  io.Writer

	mu   sync.Mutex
	view string
}

// NewPanel renders into out (may be nil).
func NewPanel(rec Recommender, out io.Writer) *Panel {
	return &Panel{rec: rec, ctrl: supersede.NewController(), out: out}
}

// View returns what the panel currently shows.
func (p *Panel) View() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.view
}

// Open shows kind in the panel and loads it in the background. The returned
// channel closes once the request finished, whether or not its result was
// applied.
func (p *Panel) Open(ctx context.Context, kind models.Kind, issueSet []string, city string) <-chan struct{} {
	done := make(chan struct{})
	tok := p.ctrl.Begin(ctx, string(kind))

	if issues.IsEmpty(issueSet) {
		p.ctrl.Apply(tok, func() { p.render(emptyIssuesHint(kind)) })
		p.ctrl.Done(tok)
		close(done)
		return done
	}
	p.ctrl.Apply(tok, func() { p.render(fmt.Sprintf("Getting %s recommendations from AI…", kind)) })

	go func() {
		defer close(done)
		defer p.ctrl.Done(tok)
		res, err := p.rec.Recommend(tok.Context(), kind, issueSet, city)
		applied := p.ctrl.Apply(tok, func() {
			switch {
			case err != nil:
				p.render(MessageError)
			case res.Batch.Len() == 0:
				p.render(MessageEmpty)
			default:
				p.render(renderBatch(res.Batch))
			}
		})
		if !applied {
			logging.Debug().Str("kind", string(kind)).Str("token", tok.ID()).Msg("dropped superseded response")
		} else if err != nil {
			logging.Warn().Err(err).Str("kind", string(kind)).Msg("recommendation request failed")
		}
	}()
	return done
}

// Close cancels whatever the panel is loading.
func (p *Panel) Close() {
	for _, k := range models.Kinds {
		p.ctrl.Cancel(string(k))
	}
}

func (p *Panel) render(s string) {
	p.mu.Lock()
	p.view = s
	p.mu.Unlock()
	if p.out != nil {
		_, _ = io.WriteString(p.out, s+"\n")
	}
}

func emptyIssuesHint(kind models.Kind) string {
	return fmt.Sprintf("Watch a few videos in your feed first. We'll recommend %s based on the issues you're learning about.", kind)
}

func renderBatch(b models.Batch) string {
	lines := []string{"Based on what you've been watching:"}
	switch b.Kind {
	case models.KindArticles:
		for i, a := range b.Articles {
			lines = append(lines, helpers.FormatCitation(helpers.Citation{
				Label: fmt.Sprint(i + 1), Title: a.Title, Snippet: a.Description, Meta: a.Source, URL: a.URL,
			}))
		}
	case models.KindCharities:
		for i, c := range b.Charities {
			lines = append(lines, helpers.FormatCitation(helpers.Citation{
				Label: fmt.Sprint(i + 1), Title: c.Name, Snippet: c.Description, URL: c.URL,
			}))
		}
	case models.KindProtests:
		for i, pr := range b.Protests {
			meta := pr.When
			if pr.Km != nil {
				meta = fmt.Sprintf("%s, %d km", pr.When, *pr.Km)
			}
			lines = append(lines, helpers.FormatCitation(helpers.Citation{
				Label: fmt.Sprint(i + 1), Title: pr.Title, Snippet: pr.Description, Meta: meta, URL: pr.Website,
			}))
			if pr.MapURL != "" {
				lines = append(lines, "    map: "+pr.MapURL)
			}
		}
	}
	return strings.Join(lines, "\n")
}
