package briefing

import (
	"time"

	"github.com/mohammad-safakhou/daybrief/internal/collector"
)

// SectionOrder is the fixed order sections appear in the report.
var SectionOrder = []string{
	collector.NameCalendar,
	collector.NameTasks,
	collector.NameMail,
	collector.NameMarket,
	collector.NameTransit,
}

// sectionTitles maps collector names to report section headers.
var sectionTitles = map[string]string{
	collector.NameCalendar: "📅 Agenda",
	collector.NameTasks:    "✅ Tasks",
	collector.NameMail:     "📧 Mail",
	collector.NameMarket:   "📈 Market",
	collector.NameTransit:  "🚚 Transit",
}

// Context is the per-run mapping from collector name to its result. It is
// built while collectors finish and read-only once synthesis starts.
type Context struct {
	Date    time.Time
	results map[string]collector.Result
}

func NewContext(date time.Time) *Context {
	return &Context{Date: date, results: make(map[string]collector.Result, len(SectionOrder))}
}

// Set records a collector result. Last write wins; collectors produce
// exactly one result per run so in practice each key is written once.
func (c *Context) Set(res collector.Result) {
	c.results[res.Collector] = res
}

// Get returns the result for a collector name.
func (c *Context) Get(name string) (collector.Result, bool) {
	res, ok := c.results[name]
	return res, ok
}

// Resolved reports whether every expected collector has a result.
func (c *Context) Resolved() bool {
	for _, name := range SectionOrder {
		if _, ok := c.results[name]; !ok {
			return false
		}
	}
	return true
}
