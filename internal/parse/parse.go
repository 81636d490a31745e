// Package parse recovers the structured analysis from a completion's free text.
//
// The completion is expected to hold a summary paragraph, the key points heading followed by a
// list, and the actions heading followed by a list. Anything else fails with a parse error;
// the parser never guesses where a section starts.
package parse

import (
	"fmt"
	"regexp"
	"strings"

	"summarize-backend/internal/contract"
	"summarize-backend/internal/shared/apperr"
)

// Result is the structured analysis returned to callers and stored in history.
type Result struct {
	Summary   string   `json:"summary"`
	KeyPoints []string `json:"keyPoints"`
	Actions   []string `json:"actions"`
}

// marker is the kind of list marker opening a line.
type marker int

const (
	noMarker marker = iota
	symbolMarker
	numberMarker
	letterMarker
)

var (
	symbolBullet = regexp.MustCompile(`^[-*+•–—·▪](?:\s+(.*))?$`)
	// A number marker may be glued to its text ("1.First") but not to another digit ("1.5m").
	numberBullet = regexp.MustCompile(`^(?:\d{1,3}[.)]|\(\d{1,3}\))(\s*)(.*)$`)
	letterBullet = regexp.MustCompile(`^(?:[A-Za-z][.)]|\([A-Za-z]\))(?:\s+(.*))?$`)
	enumeration  = regexp.MustCompile(`^(?:\d{1,3}[.)]|\(\d{1,3}\))\s*`)
)

// classify reports the marker opening line t and the text after it.
func classify(t string) (marker, string) {
	if m := symbolBullet.FindStringSubmatch(t); m != nil {
		return symbolMarker, strings.TrimSpace(m[1])
	}
	if m := numberBullet.FindStringSubmatch(t); m != nil {
		if m[1] != "" || m[2] == "" || !isDigit(m[2][0]) {
			return numberMarker, strings.TrimSpace(m[2])
		}
	}
	if m := letterBullet.FindStringSubmatch(t); m != nil {
		return letterMarker, strings.TrimSpace(m[1])
	}
	return noMarker, t
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

// Parse splits raw into summary, key points and actions using the headings in h.
func Parse(raw string, h contract.Headings) (Result, error) {
	lines := strings.Split(strings.ReplaceAll(raw, "\r\n", "\n"), "\n")

	kp, err := findHeading(lines, h.KeyPoints)
	if err != nil {
		return Result{}, err
	}
	act, err := findHeading(lines, h.Actions)
	if err != nil {
		return Result{}, err
	}
	if act < kp {
		return Result{}, parseErr("heading %q appears before %q", h.Actions, h.KeyPoints)
	}

	summary := joinSummary(lines[:kp])
	if summary == "" {
		return Result{}, parseErr("summary before %q is empty", h.KeyPoints)
	}
	keyPoints := splitItems(lines[kp+1 : act])
	if len(keyPoints) == 0 {
		return Result{}, parseErr("no items under %q", h.KeyPoints)
	}
	actions := splitItems(lines[act+1:])
	if len(actions) == 0 {
		return Result{}, parseErr("no items under %q", h.Actions)
	}
	return Result{Summary: summary, KeyPoints: keyPoints, Actions: actions}, nil
}

// Validate checks that r is complete.
func (r Result) Validate() error {
	if strings.TrimSpace(r.Summary) == "" {
		return parseErr("summary is empty")
	}
	if len(r.KeyPoints) == 0 || len(r.Actions) == 0 {
		return parseErr("key points and actions must not be empty")
	}
	for _, item := range append(append([]string{}, r.KeyPoints...), r.Actions...) {
		if strings.TrimSpace(item) == "" {
			return parseErr("list item is empty")
		}
	}
	return nil
}

func parseErr(format string, args ...any) error {
	return apperr.New(apperr.KindParse, fmt.Sprintf(format, args...), nil)
}

// findHeading returns the index of the single line carrying heading.
func findHeading(lines []string, heading string) (int, error) {
	at := -1
	for i, line := range lines {
		if !isHeading(line, heading) {
			continue
		}
		if at >= 0 {
			return -1, parseErr("heading %q appears more than once", heading)
		}
		at = i
	}
	if at < 0 {
		return -1, parseErr("heading %q not found", heading)
	}
	return at, nil
}

// isHeading matches a line holding only the heading, ignoring case, markdown emphasis and the
// trailing colon.
func isHeading(line, heading string) bool {
	key := headingKey(line)
	return key != "" && key == headingKey(heading)
}

func headingKey(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimLeft(s, "# ")
	s = strings.NewReplacer("*", "", "_", "").Replace(s)
	s = strings.TrimSpace(s)
	// Models echo the prompt's own section numbering ("2. KEY POINTS:").
	s = enumeration.ReplaceAllString(s, "")
	s = strings.TrimSpace(strings.TrimSuffix(s, ":"))
	return strings.ToUpper(strings.Join(strings.Fields(s), " "))
}

var summaryLabel = regexp.MustCompile(`(?i)^[#*_\s]*summary[*_\s]*:[*_\s]*`)

func joinSummary(lines []string) string {
	parts := make([]string, 0, len(lines))
	for _, line := range lines {
		if t := strings.TrimSpace(line); t != "" {
			parts = append(parts, t)
		}
	}
	if len(parts) == 0 {
		return ""
	}
	// A "Summary:" label is tolerated even though the prompt asks for none.
	parts[0] = strings.TrimSpace(summaryLabel.ReplaceAllString(parts[0], ""))
	if parts[0] == "" || headingKey(parts[0]) == "SUMMARY" {
		parts = parts[1:]
	}
	return strings.Join(parts, " ")
}

// splitItems turns a section into list items. When the section uses bullets, unbulleted lines
// continue the previous item; without any bullet every line is an item. Letter markers ("a.")
// count only in sections whose first bullet is one, so a wrapped line such as "Q. Smith" stays
// part of its item.
func splitItems(lines []string) []string {
	trimmed := make([]string, 0, len(lines))
	first := noMarker
	for _, line := range lines {
		t := strings.TrimSpace(line)
		if t == "" {
			continue
		}
		if m, _ := classify(t); first == noMarker {
			first = m
		}
		trimmed = append(trimmed, t)
	}

	var items []string
	open := false
	for _, t := range trimmed {
		m, text := classify(t)
		if m == letterMarker && first != letterMarker {
			m = noMarker
		}
		if m != noMarker {
			if text == "" {
				open = false
				continue
			}
			items = append(items, text)
			open = true
			continue
		}
		if first != noMarker && open {
			items[len(items)-1] += " " + t
			continue
		}
		items = append(items, t)
		open = true
	}
	return items
}
