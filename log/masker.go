/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package log

import (
	"regexp"
	"strings"

	"github.com/cloudflare/ahocorasick"
)

// StringMasker hides secrets in a string.
type StringMasker interface {
	Mask(s string) string
}

type maskReplacement struct {
	re   *regexp.Regexp
	repl string
}

type fieldRule struct {
	field        string // lowercase
	replacements []maskReplacement
}

// Masker hides values of secret fields (API keys, tokens, passwords) in strings.
// Regexps of a rule run only if its field name occurs in the string (case-insensitively).
type Masker struct {
	rules []fieldRule
	// matcher finds field names in one pass, fieldRules[i] lists rules of its i-th dictionary word.
	matcher    *ahocorasick.Matcher
	fieldRules [][]int
	// Rules without a field name are always applied.
	unconditional []int
}

var _ StringMasker = (*Masker)(nil)

// NewMasker creates a new Masker. It panics if a rule contains an invalid regular expression.
func NewMasker(rules []MaskingRuleConfig) *Masker {
	m := &Masker{rules: make([]fieldRule, 0, len(rules))}
	var dict []string
	wordIdx := make(map[string]int, len(rules))
	for i, rule := range rules {
		fr := newFieldRule(rule)
		m.rules = append(m.rules, fr)
		if fr.field == "" {
			m.unconditional = append(m.unconditional, i)
			continue
		}
		idx, ok := wordIdx[fr.field]
		if !ok {
			idx = len(dict)
			wordIdx[fr.field] = idx
			dict = append(dict, fr.field)
			m.fieldRules = append(m.fieldRules, nil)
		}
		m.fieldRules[idx] = append(m.fieldRules[idx], i)
	}
	if len(dict) != 0 {
		m.matcher = ahocorasick.NewStringMatcher(dict)
	}
	return m
}

func newFieldRule(cfg MaskingRuleConfig) fieldRule {
	r := fieldRule{field: strings.ToLower(cfg.Field)}
	add := func(expr, repl string) {
		r.replacements = append(r.replacements, maskReplacement{regexp.MustCompile(expr), repl})
	}
	for _, m := range cfg.Masks {
		add(m.RegExp, m.Mask)
	}
	name := regexp.QuoteMeta(cfg.Field)
	for _, format := range cfg.Formats {
		switch format {
		case FieldMaskFormatHTTPHeader:
			add(`(?i)`+name+`: .+?\r\n`, cfg.Field+": ***\r\n")
		case FieldMaskFormatJSON:
			add(`(?i)"`+name+`"\s*:\s*".*?[^\\]"`, `"`+cfg.Field+`": "***"`)
		case FieldMaskFormatURLEncoded:
			add(`(?i)`+name+`\s*=\s*[^&\s]+`, cfg.Field+"=***")
		}
	}
	return r
}

// Mask returns s with all secrets replaced.
func (m *Masker) Mask(s string) string {
	hit := make([]bool, len(m.rules))
	for _, i := range m.unconditional {
		hit[i] = true
	}
	if m.matcher != nil {
		for _, w := range m.matcher.MatchThreadSafe([]byte(strings.ToLower(s))) {
			for _, i := range m.fieldRules[w] {
				hit[i] = true
			}
		}
	}
	for i, rule := range m.rules {
		if !hit[i] {
			continue
		}
		for _, r := range rule.replacements {
			s = r.re.ReplaceAllString(s, r.repl)
		}
	}
	return s
}

var secretFieldFormats = []FieldMaskFormat{FieldMaskFormatJSON, FieldMaskFormatURLEncoded}

// DefaultMasks are masking rules applied when masking.useDefaultRules is set.
var DefaultMasks = []MaskingRuleConfig{
	{Field: "Authorization", Formats: []FieldMaskFormat{FieldMaskFormatHTTPHeader}},
	{Field: "password", Formats: secretFieldFormats},
	{Field: "client_secret", Formats: secretFieldFormats},
	{Field: "access_token", Formats: secretFieldFormats},
	{Field: "refresh_token", Formats: secretFieldFormats},
	{Field: "token", Formats: secretFieldFormats},
	{Field: "api_key", Formats: secretFieldFormats},
}
