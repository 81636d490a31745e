// Package redact masks personal data in extracted text before it leaves the process.
package redact

import (
	"regexp"
	"sort"
	"strings"
)

// Category names a class of personal data.
type Category string

const (
	Email Category = "email"
	IBAN  Category = "iban"
	Card  Category = "card"
	IPv4  Category = "ipv4"
	Phone Category = "phone"
)

type rule struct {
	category    Category
	pattern     *regexp.Regexp
	placeholder string
	accept      func(string) bool
}

// Rules run in order; earlier rules consume text so later ones cannot match inside a placeholder.
var rules = []rule{
	{category: Email, pattern: regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`), placeholder: "[EMAIL]"},
	{category: IBAN, pattern: regexp.MustCompile(`\b[A-Z]{2}[0-9]{2}(?:[ ]?[A-Z0-9]{4}){2,7}(?:[ ]?[A-Z0-9]{1,3})?\b`), placeholder: "[IBAN]"},
	{category: Card, pattern: regexp.MustCompile(`\b(?:[0-9][ \-]?){12,18}[0-9]\b`), placeholder: "[CARD]", accept: luhn},
	{category: IPv4, pattern: regexp.MustCompile(`\b(?:(?:25[0-5]|2[0-4][0-9]|1[0-9]{2}|[1-9]?[0-9])\.){3}(?:25[0-5]|2[0-4][0-9]|1[0-9]{2}|[1-9]?[0-9])\b`), placeholder: "[IP]"},
	{category: Phone, pattern: regexp.MustCompile(`(?:\+[0-9]{1,3}[ .\-]?)?(?:\([0-9]{2,4}\)[ .\-]?)?[0-9]{2,4}[ .\-][0-9]{2,4}[ .\-][0-9]{2,5}\b`), placeholder: "[PHONE]"},
}

// Report counts replacements per category.
type Report map[Category]int

// Total is the number of replacements across categories.
func (r Report) Total() int {
	n := 0
	for _, c := range r {
		n += c
	}
	return n
}

// Fields flattens the report for structured logs.
func (r Report) Fields() map[string]any {
	out := make(map[string]any, len(r))
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, string(k))
	}
	sort.Strings(keys)
	for _, k := range keys {
		out["redacted_"+k] = r[Category(k)]
	}
	return out
}

// Text replaces personal data in s with placeholders such as "[EMAIL]".
func Text(s string) (string, Report) {
	report := Report{}
	for _, rl := range rules {
		s = rl.pattern.ReplaceAllStringFunc(s, func(m string) string {
			if rl.accept != nil && !rl.accept(m) {
				return m
			}
			report[rl.category]++
			return rl.placeholder
		})
	}
	return s, report
}

// luhn reports whether the digits in s pass the Luhn checksum.
func luhn(s string) bool {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, s)
	if len(digits) < 13 || len(digits) > 19 {
		return false
	}
	sum := 0
	double := false
	for i := len(digits) - 1; i >= 0; i-- {
		d := int(digits[i] - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return sum%10 == 0
}
