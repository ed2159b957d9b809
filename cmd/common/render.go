package common

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/jonesrussell/north-cloud/affiliate-engine/internal/domain"
	"github.com/jonesrussell/north-cloud/affiliate-engine/internal/links"
)

const timeLayout = "2006-01-02 15:04"

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	return t
}

func percent(v float64) string {
	return strconv.FormatFloat(v*100, 'f', 1, 64) + "%"
}

// RenderPrograms prints discovered programs, best first.
func RenderPrograms(w io.Writer, candidates []domain.Candidate, usedFallback bool) {
	t := newTable(w)
	t.AppendHeader(table.Row{"#", "Program", "Platform", "Commission", "Cookie", "Official", "Confidence"})
	for i, c := range candidates {
		t.AppendRow(table.Row{
			i + 1, c.Name, c.Platform, percent(c.CommissionRate),
			fmt.Sprintf("%dd", c.CookieDays), c.IsOfficial, strconv.FormatFloat(c.Confidence, 'f', 2, 64),
		})
	}
	if usedFallback {
		t.AppendFooter(table.Row{"", "fallback data used"})
	}
	t.Render()
}

// RenderLinks prints affiliate links.
func RenderLinks(w io.Writer, out []domain.AffiliateLink) {
	t := newTable(w)
	t.AppendHeader(table.Row{"ID", "Product", "Platform", "Program", "Commission", "Status", "Tracking URL", "Updated"})
	for i := range out {
		l := &out[i]
		t.AppendRow(table.Row{
			l.ID, l.ProductID, l.Platform, l.ProgramName, percent(l.CommissionRate),
			l.Status, l.TrackingURL, l.UpdatedAt.Format(timeLayout),
		})
	}
	t.AppendFooter(table.Row{"", "", "", "", "", "", "Total", len(out)})
	t.Render()
}

// RenderBatch prints a generate-all result.
func RenderBatch(w io.Writer, result *links.BatchResult) {
	generated := make([]domain.AffiliateLink, 0, len(result.Links))
	for _, l := range result.Links {
		generated = append(generated, *l)
	}
	RenderLinks(w, generated)

	if len(result.Errors) == 0 {
		return
	}
	t := newTable(w)
	t.AppendHeader(table.Row{"Product", "Platform", "Error"})
	for _, e := range result.Errors {
		t.AppendRow(table.Row{e.ProductID, e.Platform, e.Err.Error()})
	}
	t.Render()
}

// RenderAdCopies prints ad copy history.
func RenderAdCopies(w io.Writer, copies []domain.GeneratedAdCopy) {
	t := newTable(w)
	t.AppendHeader(table.Row{"ID", "Type", "Headline", "CTA", "Score", "Source", "Created"})
	for i := range copies {
		ad := &copies[i]
		score := "-"
		if ad.PerformanceScore != nil {
			score = strconv.FormatFloat(*ad.PerformanceScore, 'f', 0, 64)
		}
		t.AppendRow(table.Row{
			ad.ID, ad.AdType, ad.Headline, ad.CTA, score, ad.Source, ad.CreatedAt.Format(timeLayout),
		})
	}
	t.Render()
}

// PrintJSON writes v as indented JSON.
func PrintJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
