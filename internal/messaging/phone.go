package messaging

import (
	"fmt"
	"regexp"
	"strings"
)

var phoneDigitsRe = regexp.MustCompile(`\d+`)

// PhoneForms bundles the canonical representations of one raw phone string.
// Directory rows and prior messages were written by several code paths over
// the years and are not uniformly formatted, so lookups try every form.
type PhoneForms struct {
	// Raw is the string exactly as the carrier supplied it.
	Raw string
	// Formatted is area-exchange-subscriber with dashes (925-550-1617) when
	// the digits are recognizably a US number, otherwise equal to AllDigits.
	Formatted string
	// AllDigits is the raw string with every non-digit removed.
	AllDigits string
	// LocalDigits is AllDigits with a leading "1" country code stripped.
	LocalDigits string
}

// NormalizePhone derives every canonical form of a raw phone string. It is
// total: any input, including garbage, produces a usable PhoneForms.
func NormalizePhone(raw string) PhoneForms {
	allDigits := sanitizePhone(raw)
	localDigits := allDigits
	if len(allDigits) == 11 && strings.HasPrefix(allDigits, "1") {
		localDigits = allDigits[1:]
	}
	formatted := allDigits
	if len(localDigits) == 10 {
		formatted = fmt.Sprintf("%s-%s-%s", localDigits[:3], localDigits[3:6], localDigits[6:])
	}
	return PhoneForms{
		Raw:         raw,
		Formatted:   formatted,
		AllDigits:   allDigits,
		LocalDigits: localDigits,
	}
}

// LookupCandidates returns the forms to try for exact-match lookups, in
// precedence order, with duplicates removed.
func (f PhoneForms) LookupCandidates() []string {
	return uniqueStrings([]string{f.Formatted, f.Raw, f.AllDigits, f.LocalDigits})
}

// NumberCandidates returns the forms used for number-scoped message matching.
func (f PhoneForms) NumberCandidates() []string {
	return uniqueStrings([]string{f.Raw, f.Formatted})
}

// DigitCandidates returns the digit-only forms used for fuzzy matching.
func (f PhoneForms) DigitCandidates() []string {
	return uniqueStrings([]string{f.AllDigits, f.LocalDigits})
}

// SenderKey is the key conversation creation is serialized on. Falls back to
// the raw string when the number carries no digits at all.
func (f PhoneForms) SenderKey() string {
	if f.AllDigits != "" {
		return f.AllDigits
	}
	return f.Raw
}

func sanitizePhone(value string) string {
	if value == "" {
		return ""
	}
	digits := phoneDigitsRe.FindAllString(value, -1)
	return strings.Join(digits, "")
}

func uniqueStrings(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
