package history

import (
	"context"
	"fmt"
	"time"

	"github.com/rewindhq/rewind/pkg/replaylib"
)

// demoSteps are the offsets (ms from five minutes before now) and actions
// of the demo timeline. Labels cycle through URL_A..URL_M.
var demoSteps = []struct {
	offsetMs int64
	action   string
}{
	{0, "navigate"}, {5000, "click"}, {10000, "click"}, {15000, "backBtn"},
	{20000, "formSubmit"}, {25000, "tabClick"}, {30000, "linkClick"}, {35000, "buttonClick"},
	{45000, "linkClick"}, {50000, "formSubmit"}, {55000, "backBtn"}, {60000, "click"},
	{65000, "navigate"}, {70000, "linkClick"}, {75000, "buttonClick"}, {80000, "navigate"},
	{224000, "click"}, {240000, "linkClick"}, {256000, "formSubmit"}, {272000, "buttonClick"},
	{288000, "click"}, {305000, "navigate"}, {322000, "linkClick"}, {339000, "formSubmit"},
	{356000, "click"}, {373000, "buttonClick"}, {390000, "navigate"}, {407000, "linkClick"},
	{424000, "click"}, {441000, "formSubmit"},
}

const demoPages = 13

// DemoRecords builds the demo timeline around now.
func DemoRecords(now time.Time) []replaylib.Record {
	base := now.Add(-5 * time.Minute).UnixMilli()
	out := make([]replaylib.Record, len(demoSteps))
	for i, st := range demoSteps {
		page := 'a' + rune(i%demoPages)
		out[i] = replaylib.Record{
			EpochMs: base + st.offsetMs,
			Target:  fmt.Sprintf("/pages/url_%c.html", page),
			Label:   fmt.Sprintf("URL_%c", page-'a'+'A'),
			Action:  st.action,
		}
	}
	return out
}

// Seed replaces the timeline with the demo records.
func (s *Store) Seed(ctx context.Context, now time.Time) (int, error) {
	return s.Import(ctx, DemoRecords(now))
}
