package recommend

import (
	"fmt"
	"strings"
	"time"

	"github.com/mohammad-safakhou/azadi/models"
)

func bulletList(issues []string) string {
	return "• " + strings.Join(issues, "\n• ")
}

func articlesPrompt(issues []string, limit int) string {
	return fmt.Sprintf(`Find up to %d recent, high-quality news or feature articles from reputable sources (e.g. BBC, The Guardian, NPR, Al Jazeera, Reuters) about these topics the user is learning about:

%s

Search the web and list real articles with their real URLs. Focus on social justice, activism, and education.
Respond with a JSON array only, no prose: [{"title":"...","url":"https://...","source":"...","description":"..."}]`,
		limit, bulletList(issues))
}

func charitiesPrompt(issues []string, limit int) string {
	return fmt.Sprintf(`Find up to %d real, currently operating charities, mutual-aid groups or non-profit organisations that accept donations or volunteers and work on these topics:

%s

Search the web and only include organisations whose official website you found. Prefer established, transparent organisations.
Respond with a JSON array only, no prose: [{"name":"...","description":"one sentence on what they do","url":"https://..."}]`,
		limit, bulletList(issues))
}

func protestsPrompt(issues []string, city string, now time.Time, limit int) string {
	return fmt.Sprintf(`Today is %s. Find up to %d upcoming protests, rallies, marches or community actions in or near %s about these topics:

%s

Search the web. Only include events dated today or later, with a real event page or organiser website. Do not include past events.
Respond with a JSON array only, no prose: [{"title":"...","description":"...","when":"YYYY-MM-DD HH:MM","address":"...","lat":0.0,"lng":0.0,"website":"https://..."}]
Omit lat and lng when you do not know the exact location.`,
		now.Format("Monday, January 2, 2006"), limit, city, bulletList(issues))
}

func enrichPrompt(issues []string, articles []models.Article) string {
	titles := make([]string, 0, len(articles))
	for _, a := range articles {
		titles = append(titles, a.Title)
	}
	return fmt.Sprintf(`Topics: %s

Article titles (one per line):
%s

For each title above, write exactly one short, concrete summary sentence. State directly what the article does or what the reader learns, with no hedging (no "likely", "may", "might", "could", "probably"). Same order. Return only valid JSON: [{"title":"...","description":"..."}, ...]`,
		strings.Join(issues, "\n• "), strings.Join(titles, "\n"))
}
