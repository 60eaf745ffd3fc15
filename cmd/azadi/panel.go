package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/mohammad-safakhou/azadi/internal/client"
	"github.com/mohammad-safakhou/azadi/internal/httpclient"
	"github.com/mohammad-safakhou/azadi/models"
)

// panelCMD drives the recommendation panel against a running gateway. Each
// --kind opens in turn; a later kind supersedes an earlier one still loading.
func panelCMD() *cobra.Command {
	var baseURL string
	var kinds []string
	var issueFlags []string
	var city string
	var switchAfter time.Duration
	var timeout time.Duration

	var panel = &cobra.Command{
		Use:   "panel",
		Short: "Open recommendation panels from the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			issueSet := issueFlags
			if len(issueSet) == 0 {
				stdinIssues, err := readIssues(cmd.InOrStdin())
				if err != nil {
					return err
				}
				issueSet = stdinIssues
			}
			if len(kinds) == 0 {
				kinds = []string{string(models.KindArticles)}
			}
			parsed := make([]models.Kind, 0, len(kinds))
			for _, k := range kinds {
				kind, err := models.ParseKind(k)
				if err != nil {
					return err
				}
				parsed = append(parsed, kind)
			}

			hc := httpclient.New(timeout, 1, 0)
			p := client.NewPanel(client.New(baseURL, hc), cmd.OutOrStdout())
			defer p.Close()

			var done <-chan struct{}
			for i, kind := range parsed {
				done = p.Open(cmd.Context(), kind, issueSet, city)
				if i == len(parsed)-1 {
					break
				}
				if switchAfter > 0 {
					time.Sleep(switchAfter)
				} else {
					<-done
				}
			}
			<-done
			return nil
		},
	}
	panel.Flags().StringVar(&baseURL, "url", "http://localhost:3001", "gateway base URL")
	panel.Flags().StringSliceVar(&kinds, "kind", nil, "panels to open in order: articles, charities, protests")
	panel.Flags().StringArrayVar(&issueFlags, "issue", nil, "issue to recommend for (repeatable; default reads lines from stdin)")
	panel.Flags().StringVar(&city, "city", "", "city for nearby protests")
	panel.Flags().DurationVar(&switchAfter, "switch-after", 0, "open the next kind after this delay instead of waiting for the current one")
	panel.Flags().DurationVar(&timeout, "timeout", 90*time.Second, "per-request timeout")
	return panel
}

func readIssues(in io.Reader) ([]string, error) {
	if f, ok := in.(*os.File); ok {
		if st, err := f.Stat(); err == nil && st.Mode()&os.ModeCharDevice != 0 {
			return nil, nil
		}
	}
	var out []string
	sc := bufio.NewScanner(in)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			out = append(out, line)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read issues: %w", err)
	}
	return out, nil
}
