package briefing

import (
	"context"
	"log"
	"strings"

	"github.com/mohammad-safakhou/daybrief/provider"
)

// Synthesizer turns a resolved briefing context into the final report. The
// LLM polishes the deterministic scaffold; if the call fails the scaffold
// itself is the report, so a briefing is always produced.
type Synthesizer struct {
	provider provider.Provider
	logger   *log.Logger
}

func NewSynthesizer(p provider.Provider, logger *log.Logger) *Synthesizer {
	return &Synthesizer{provider: p, logger: logger}
}

func (s *Synthesizer) Synthesize(ctx context.Context, bc *Context) string {
	scaffold := Scaffold(bc)

	report, err := s.provider.SynthesizeBriefing(ctx, bc.Date, scaffold)
	if err != nil {
		s.logger.Printf("[BRIEFING] synthesis failed, delivering scaffold: %v", err)
		return scaffold
	}
	if strings.TrimSpace(report) == "" {
		s.logger.Printf("[BRIEFING] synthesis returned empty report, delivering scaffold")
		return scaffold
	}
	return report
}
