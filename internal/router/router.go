// Package router classifies free-text chat messages against per-tool keyword
// sets. It is a bag-of-keywords scorer, not a trained model: nothing is
// learned and no score persists across sessions.
package router

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Tool identifies a company tool the dashboard can open.
type Tool string

const (
	ToolGeneral    Tool = "general"
	ToolInventory  Tool = "inventory"
	ToolGrading    Tool = "grading"
	ToolWorkOrders Tool = "workorders"
	ToolScheduling Tool = "scheduling"
	ToolInvoicing  Tool = "invoicing"
)

const (
	wholeWordPoints = 2
	substringPoints = 1
	scoreThreshold  = 2
	scoreCeiling    = 5

	// AutoNavigateConfidence is the bar above which the caller may jump
	// straight to the tool; anything lower is advisory only.
	AutoNavigateConfidence = 0.7
)

type toolConfig struct {
	tool     Tool
	keywords []string
}

// Declaration order is the tie-break: the first tool with the best score
// wins. The order is arbitrary, not semantically meaningful.
var tools = []toolConfig{
	{ToolInventory, []string{"inventory", "stock", "supplies", "mulch", "pallet", "warehouse"}},
	{ToolGrading, []string{"grading", "grade", "excavation", "slope", "drainage", "dirt"}},
	{ToolWorkOrders, []string{"work order", "progress", "line item", "completion", "job status"}},
	{ToolScheduling, []string{"schedule", "scheduling", "calendar", "crew", "appointment"}},
	{ToolInvoicing, []string{"invoice", "invoicing", "billing", "payment", "estimate"}},
}

func init() {
	if err := validateTools(tools); err != nil {
		panic(err)
	}
}

// validateTools checks the table shape at load: non-empty keyword sets, no
// blank or duplicate keywords within a tool, and no entry for the general
// fallback.
func validateTools(cfgs []toolConfig) error {
	seen := make(map[Tool]bool)
	for _, cfg := range cfgs {
		if cfg.tool == ToolGeneral {
			return fmt.Errorf("router: %q must not have a keyword set", ToolGeneral)
		}
		if seen[cfg.tool] {
			return fmt.Errorf("router: duplicate tool %q", cfg.tool)
		}
		seen[cfg.tool] = true
		if len(cfg.keywords) == 0 {
			return fmt.Errorf("router: tool %q has no keywords", cfg.tool)
		}
		kws := make(map[string]bool)
		for _, k := range cfg.keywords {
			k = strings.ToLower(strings.TrimSpace(k))
			if k == "" {
				return fmt.Errorf("router: tool %q has a blank keyword", cfg.tool)
			}
			if kws[k] {
				return fmt.Errorf("router: tool %q repeats keyword %q", cfg.tool, k)
			}
			kws[k] = true
		}
	}
	return nil
}

// Result is the routing decision for one message.
type Result struct {
	Tool       Tool
	Confidence float64 // 0..1
	Matched    []string
}

// AutoNavigate reports whether the caller may jump to the tool without
// asking.
func (r Result) AutoNavigate() bool {
	return r.Tool != ToolGeneral && r.Confidence > AutoNavigateConfidence
}

// Route scores message against every tool's keywords: two points for a
// whole-word match, one for a substring-only match. Below the threshold the
// message routes to general with zero confidence.
func Route(message string) Result {
	lower := strings.ToLower(message)

	best := Result{Tool: ToolGeneral}
	bestScore := 0

	for _, cfg := range tools {
		score := 0
		var matched []string
		for _, kw := range cfg.keywords {
			switch {
			case containsWholeWord(lower, kw):
				score += wholeWordPoints
				matched = append(matched, kw)
			case strings.Contains(lower, kw):
				score += substringPoints
				matched = append(matched, kw)
			}
		}
		if score > bestScore {
			bestScore = score
			best = Result{Tool: cfg.tool, Matched: matched}
		}
	}

	if bestScore < scoreThreshold {
		return Result{Tool: ToolGeneral}
	}

	best.Confidence = float64(bestScore) / scoreCeiling
	if best.Confidence > 1 {
		best.Confidence = 1
	}
	return best
}

// containsWholeWord reports whether kw occurs in s bounded by non-word runes
// on both sides. kw may itself contain spaces ("work order").
func containsWholeWord(s, kw string) bool {
	for start := 0; ; {
		i := strings.Index(s[start:], kw)
		if i < 0 {
			return false
		}
		i += start
		prev, _ := utf8.DecodeLastRuneInString(s[:i])
		before := i == 0 || !isWordRune(prev)
		afterIdx := i + len(kw)
		next, _ := utf8.DecodeRuneInString(s[afterIdx:])
		after := afterIdx >= len(s) || !isWordRune(next)
		if before && after {
			return true
		}
		start = i + 1
	}
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}
