package briefing

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mohammad-safakhou/daybrief/internal/collector"
)

// NoDataMarker is rendered for any section whose collector came back Empty
// or missing. Sections are never silently omitted.
const NoDataMarker = "no data"

// Scaffold renders the deterministic section template for a briefing
// context. It is both the synthesis input and the fallback report: every
// section appears in the fixed order, with explicit markers for empty and
// failed slots, and nothing is ever fabricated.
func Scaffold(bc *Context) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "DAILY BRIEFING — %s\n", bc.Date.Format("02/01/2006"))

	for _, name := range SectionOrder {
		fmt.Fprintf(&sb, "\n%s\n", sectionTitles[name])
		res, ok := bc.Get(name)
		if !ok || res.Status == collector.StatusEmpty {
			reason := NoDataMarker
			if ok && res.Reason != "" {
				reason = fmt.Sprintf("%s (%s)", NoDataMarker, res.Reason)
			}
			fmt.Fprintf(&sb, "- %s\n", reason)
			continue
		}
		if res.Status == collector.StatusFailure {
			fmt.Fprintf(&sb, "- ⚠ error: %s\n", res.Reason)
			continue
		}
		writePayload(&sb, res.Payload)
	}

	return sb.String()
}

func writePayload(sb *strings.Builder, payload interface{}) {
	switch p := payload.(type) {
	case []collector.CalendarEvent:
		for _, ev := range p {
			line := fmt.Sprintf("- %s at %s", ev.Title, ev.Start)
			if ev.Location != "" {
				line += " (" + ev.Location + ")"
			}
			fmt.Fprintln(sb, line)
		}
	case []collector.TaskItem:
		for _, t := range p {
			line := fmt.Sprintf("- [%s] %s", t.List, t.Title)
			if t.Notes != "" {
				line += " — " + t.Notes
			}
			fmt.Fprintln(sb, line)
		}
	case []collector.MailMessage:
		for _, m := range p {
			fmt.Fprintf(sb, "- %s: %s\n", m.Sender, m.Subject)
			if m.Snippet != "" {
				fmt.Fprintf(sb, "  %s\n", m.Snippet)
			}
		}
	case collector.MarketData:
		for _, q := range p.Quotes {
			fmt.Fprintf(sb, "- %s\n", formatQuote(q))
		}
		for _, s := range p.InvalidSymbols {
			fmt.Fprintf(sb, "- ⚠ no price data for %s\n", s)
		}
		for _, n := range p.News {
			fmt.Fprintf(sb, "- %s (%s)\n", n.Title, n.Source)
		}
		if p.NewsError != "" {
			fmt.Fprintf(sb, "- ⚠ news error: %s\n", p.NewsError)
		}
	case collector.TransitReport:
		if len(p.AlertLines) > 0 {
			for _, line := range p.AlertLines {
				fmt.Fprintf(sb, "- ⚠ %s\n", line)
			}
		} else {
			fmt.Fprintln(sb, "- no alerts in today's bulletin")
		}
		if p.Excerpt != "" {
			fmt.Fprintf(sb, "  excerpt: %s\n", strings.TrimSpace(p.Excerpt))
		}
		if p.Bulletin != "" {
			fmt.Fprintf(sb, "  bulletin: %s\n", p.Bulletin)
		}
	default:
		// Unknown payload shapes fall back to JSON so data is never lost.
		data, err := json.Marshal(payload)
		if err != nil {
			fmt.Fprintf(sb, "- (unrenderable payload: %v)\n", err)
			return
		}
		fmt.Fprintf(sb, "- %s\n", data)
	}
}

func formatQuote(q map[string]interface{}) string {
	symbol, _ := q["symbol"].(string)
	name, _ := q["shortName"].(string)
	currency, _ := q["currency"].(string)

	price := q["currentPrice"]
	if price == nil {
		price = q["regularMarketPrice"]
	}

	var parts []string
	if name != "" {
		parts = append(parts, fmt.Sprintf("%s (%s)", name, symbol))
	} else {
		parts = append(parts, symbol)
	}
	if price != nil {
		parts = append(parts, fmt.Sprintf("%v %s", price, currency))
	}
	if change, ok := q["regularMarketChangePercent"]; ok {
		parts = append(parts, fmt.Sprintf("%+.2f%%", toFloat(change)))
	}
	return strings.Join(parts, " ")
}

func toFloat(v interface{}) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case json.Number:
		f, _ := n.Float64()
		return f
	default:
		return 0
	}
}
