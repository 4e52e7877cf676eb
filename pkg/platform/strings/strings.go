// Package strings holds small string helpers shared by config and logging.
package strings

import (
	"strings"
	"unicode/utf8"
)

// SplitList splits raw on sep and returns the trimmed, non-empty elements
// in first-seen order with repeats removed.
//
//	SplitList(" kafka-1:9092, kafka-2:9092,,kafka-1:9092", ",")
//	// []string{"kafka-1:9092", "kafka-2:9092"}
func SplitList(raw, sep string) []string {
	var out []string
	seen := make(map[string]bool)
	for part := range strings.SplitSeq(raw, sep) {
		part = strings.TrimSpace(part)
		if part == "" || seen[part] {
			continue
		}
		seen[part] = true
		out = append(out, part)
	}
	return out
}

const visibleTail = 4

// Mask hides most of a PIX key value or code destination for logs. Emails
// keep the first character of the local part and the domain; anything else
// keeps its last four characters.
//
//	Mask("ana@example.com") // "a***@example.com"
//	Mask("+5511987654321")  // "**********4321"
func Mask(value string) string {
	if local, domain, ok := strings.Cut(value, "@"); ok && local != "" {
		first, _ := utf8.DecodeRuneInString(local)
		return string(first) + "***@" + domain
	}
	n := utf8.RuneCountInString(value)
	if n <= visibleTail {
		return strings.Repeat("*", n)
	}
	runes := []rune(value)
	return strings.Repeat("*", n-visibleTail) + string(runes[n-visibleTail:])
}
