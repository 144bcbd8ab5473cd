// Package redact removes PII and credentials from outbound answer text.
//
// Every answer passes through redaction before leaving the service, including
// error fallbacks. Each rule carries its own placeholder so downstream
// consumers can tell what kind of value was removed without seeing it.
// Placeholders never re-match any rule, so redaction is idempotent.
package redact

import (
	"fmt"
	"regexp"
	"sort"
	"time"
)

// BlockedContent replaces the entire answer when redaction itself fails.
// Emitting nothing beats emitting unscrubbed text.
const BlockedContent = "[REDACTION_ERROR - CONTENT BLOCKED]"

// Rule defines one redaction rule.
type Rule struct {
	// ID is the unique identifier for this rule.
	ID string `koanf:"id"`

	// Description explains what this rule detects.
	Description string `koanf:"description"`

	// Pattern is the regex matching values to remove.
	Pattern string `koanf:"pattern"`

	// Placeholder replaces each match, e.g. "[EMAIL]".
	Placeholder string `koanf:"placeholder"`
}

// Finding records one redacted value. The value itself is never stored.
type Finding struct {
	// RuleID identifies the rule that matched.
	RuleID string `json:"rule_id"`

	// StartIndex and EndIndex locate the match in the original text.
	StartIndex int `json:"start_index"`
	EndIndex   int `json:"end_index"`
}

// Result contains the redaction outcome.
type Result struct {
	// Redacted is the text with all matches replaced.
	Redacted string `json:"redacted"`

	// Findings lists the matches, without their values.
	Findings []Finding `json:"findings,omitempty"`

	// TotalFindings is the match count.
	TotalFindings int `json:"total_findings"`

	// ByRule maps rule IDs to match counts.
	ByRule map[string]int `json:"by_rule,omitempty"`

	// Duration is how long redaction took.
	Duration time.Duration `json:"duration"`
}

// Detector finds and replaces sensitive values in text. The default is the
// regex engine below; an NLP-backed detector can slot in per deployment.
type Detector interface {
	Redact(content string) (*Result, error)
}

// Config configures the regex detector.
type Config struct {
	// Rules are the active redaction rules. Empty means DefaultRules.
	Rules []Rule `koanf:"rules"`

	compiled []compiledRule
}

type compiledRule struct {
	Rule
	pattern *regexp.Regexp
}

// Validate compiles the rules, falling back to DefaultRules when none are set.
func (c *Config) Validate() error {
	rules := c.Rules
	if len(rules) == 0 {
		rules = DefaultRules()
	}
	c.compiled = make([]compiledRule, 0, len(rules))
	for i, rule := range rules {
		if rule.ID == "" {
			return fmt.Errorf("rule %d: ID is required", i)
		}
		if rule.Pattern == "" {
			return fmt.Errorf("rule %s: pattern is required", rule.ID)
		}
		if rule.Placeholder == "" {
			return fmt.Errorf("rule %s: placeholder is required", rule.ID)
		}
		pattern, err := regexp.Compile(rule.Pattern)
		if err != nil {
			return fmt.Errorf("rule %s: invalid pattern: %w", rule.ID, err)
		}
		c.compiled = append(c.compiled, compiledRule{Rule: rule, pattern: pattern})
	}
	return nil
}

// RegexDetector is the default rule-table detector.
type RegexDetector struct {
	config Config
}

// New creates a RegexDetector. A nil config uses DefaultRules.
func New(cfg *Config) (*RegexDetector, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &RegexDetector{config: *cfg}, nil
}

// MustNew creates a RegexDetector, panicking on error. For use with the
// built-in rule set, which is known to compile.
func MustNew(cfg *Config) *RegexDetector {
	d, err := New(cfg)
	if err != nil {
		panic(err)
	}
	return d
}

// span tracks a region to replace.
type span struct {
	start, end  int
	ruleID      string
	placeholder string
}

// Redact replaces every rule match with its placeholder.
func (d *RegexDetector) Redact(content string) (*Result, error) {
	start := time.Now()
	result := &Result{
		Redacted: content,
		ByRule:   make(map[string]int),
	}

	spans := make([]span, 0)
	for _, rule := range d.config.compiled {
		for _, m := range rule.pattern.FindAllStringIndex(content, -1) {
			spans = append(spans, span{
				start:       m[0],
				end:         m[1],
				ruleID:      rule.ID,
				placeholder: rule.Placeholder,
			})
		}
	}

	if len(spans) == 0 {
		result.Duration = time.Since(start)
		return result, nil
	}

	// Earliest-starting match wins an overlap; among equal starts the longer
	// match wins. Rule order breaks remaining ties.
	sort.SliceStable(spans, func(i, j int) bool {
		if spans[i].start != spans[j].start {
			return spans[i].start < spans[j].start
		}
		return spans[i].end > spans[j].end
	})
	kept := spans[:0]
	lastEnd := -1
	for _, s := range spans {
		if s.start < lastEnd {
			continue
		}
		kept = append(kept, s)
		lastEnd = s.end
	}

	for _, s := range kept {
		result.Findings = append(result.Findings, Finding{
			RuleID:     s.ruleID,
			StartIndex: s.start,
			EndIndex:   s.end,
		})
		result.ByRule[s.ruleID]++
	}
	result.TotalFindings = len(kept)

	// Apply back to front so earlier indices stay valid.
	redacted := content
	for i := len(kept) - 1; i >= 0; i-- {
		s := kept[i]
		redacted = redacted[:s.start] + s.placeholder + redacted[s.end:]
	}
	result.Redacted = redacted
	result.Duration = time.Since(start)
	return result, nil
}

// Compile-time check that RegexDetector implements Detector.
var _ Detector = (*RegexDetector)(nil)
