package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/text"

	"tvrecs/internal/config"
	"tvrecs/internal/features"
	"tvrecs/internal/recommend"
	"tvrecs/internal/selection"
)

const (
	summaryWidth = 76
	topGenres    = 5
)

// renderReport writes one context's recommendations.
func renderReport(w io.Writer, report recommend.Report, out config.Output, colorize bool) {
	for _, line := range renderSectionHeader("Recommendations for "+report.Context.Label(), colorize) {
		fmt.Fprintln(w, line)
	}
	source := "rebuilt"
	if report.Cache.Hit {
		source = "cached"
	}
	fmt.Fprintf(w, "Profile: %d watched shows (%s, %s)\n", report.Profile.Shows, source, report.Cache.Reason)
	if genres := report.Profile.Genres.Top(topGenres); len(genres) > 0 {
		fmt.Fprintf(w, "Top genres: %s\n", strings.Join(genres, ", "))
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "From your library")
	if len(report.Library) == 0 {
		fmt.Fprintln(w, "  No unwatched library shows matched your profile.")
	} else {
		renderCandidates(w, report.Library, out, true)
	}

	if len(report.Suggestions) > 0 || report.SuggestionStats.Input > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "New to you (Trakt)")
		if len(report.Suggestions) == 0 {
			fmt.Fprintln(w, "  Every Trakt suggestion is already in your library or excluded.")
		} else {
			renderCandidates(w, report.Suggestions, out, false)
		}
	}
	fmt.Fprintln(w)
}

func renderCandidates(w io.Writer, cands []selection.Candidate, out config.Output, showMatch bool) {
	headers := []string{"#", "Title"}
	aligns := []columnAlignment{alignRight, alignLeft}
	if showMatch {
		headers = append(headers, "Match")
		aligns = append(aligns, alignRight)
	}
	if out.ShowRating {
		headers = append(headers, "Rating")
		aligns = append(aligns, alignRight)
	}
	if out.ShowLanguage {
		headers = append(headers, "Language")
		aligns = append(aligns, alignLeft)
	}
	if out.ShowCast {
		headers = append(headers, "Cast")
		aligns = append(aligns, alignLeft)
	}
	headers = append(headers, "Genres")
	aligns = append(aligns, alignLeft)

	rows := make([][]string, 0, len(cands))
	for i, c := range cands {
		row := []string{strconv.Itoa(i + 1), c.Show.Label()}
		if showMatch {
			row = append(row, fmt.Sprintf("%.0f%%", c.Result.Score*100))
		}
		if out.ShowRating {
			row = append(row, formatRating(c.Show.AudienceRating))
		}
		if out.ShowLanguage {
			row = append(row, displayLanguage(c))
		}
		if out.ShowCast {
			row = append(row, strings.Join(c.Show.Cast[:min(len(c.Show.Cast), features.MaxCast)], ", "))
		}
		row = append(row, strings.Join(c.Features.Genres, ", "))
		rows = append(rows, row)
	}
	fmt.Fprintln(w, renderTable(headers, rows, aligns))

	if !out.ShowSummary && !out.ShowIMDbLink {
		return
	}
	for i, c := range cands {
		summary := strings.TrimSpace(c.Show.Summary)
		link := ""
		if out.ShowIMDbLink {
			link = c.Show.IMDbLink()
		}
		if (!out.ShowSummary || summary == "") && link == "" {
			continue
		}
		fmt.Fprintf(w, "%d. %s\n", i+1, c.Show.Label())
		if out.ShowSummary && summary != "" {
			for _, line := range strings.Split(text.WrapSoft(summary, summaryWidth), "\n") {
				fmt.Fprintf(w, "   %s\n", line)
			}
		}
		if link != "" {
			fmt.Fprintf(w, "   %s\n", link)
		}
	}
}

func formatRating(rating float64) string {
	if rating <= 0 {
		return "-"
	}
	return fmt.Sprintf("%.1f", rating)
}

func displayLanguage(c selection.Candidate) string {
	if c.Show.Language != "" {
		return c.Show.Language
	}
	if lang, ok := c.Features.ScoredLanguage(); ok {
		return lang
	}
	return "-"
}
