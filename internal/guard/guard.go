// Package guard screens text for injection attempts: inbound prompts before
// any retrieval or synthesis happens, and retrieved chunk content before it
// becomes evidence.
//
// Checks are layered and short-circuit on the first failure: structural
// limits first, then heuristic pattern matching, then the semantic anomaly
// detector. Text must clear every layer to proceed, whether it arrived as a
// prompt or as stored content.
package guard

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/evidenced/internal/logging"
)

var tracer = otel.Tracer("evidenced.guard")

// Confidence levels reported on verdicts. Heuristic matches are near-certain;
// the semantic layer is weaker evidence.
const (
	heuristicConfidence = 0.95
	semanticConfidence  = 0.85
)

// Reason codes for rejected prompts.
const (
	ReasonEmptyPrompt     = "empty_prompt"
	ReasonPromptTooLong   = "prompt_too_long"
	ReasonSemanticAnomaly = "semantic_anomaly_detected"
)

// tokenRepeatThreshold is the number of consecutive identical words that
// flags a smuggling attempt via token flooding.
const tokenRepeatThreshold = 10

// Verdict is the outcome of screening one prompt.
type Verdict struct {
	// OK is true when the prompt cleared every layer.
	OK bool `json:"ok"`

	// Reason identifies the failing layer when OK is false.
	// Heuristic failures use the form "heuristic_match:<pattern id>".
	Reason string `json:"reason,omitempty"`

	// Confidence in the rejection, in [0,1]. Zero when OK.
	Confidence float64 `json:"confidence,omitempty"`
}

// allow is the verdict for a clean prompt.
var allow = Verdict{OK: true}

func reject(reason string, confidence float64) Verdict {
	return Verdict{OK: false, Reason: reason, Confidence: confidence}
}

// heuristicPattern pairs a stable pattern ID with its compiled expression.
// The ID appears in verdict reasons and metrics, never the raw prompt.
type heuristicPattern struct {
	id string
	re *regexp.Regexp
}

var heuristicPatterns = []heuristicPattern{
	{
		id: "instruction-override",
		re: regexp.MustCompile(`(?i)(ignore|disregard|forget)\s+(?:(?:all|any|previous)\s+)+(instructions|prompts)`),
	},
	{
		id: "system-prompt-exfiltration",
		re: regexp.MustCompile(`(?i)(reveal|print|show)\s+(the\s+)?(system\s+prompt|developer\s+message|hidden\s+instructions)`),
	},
	{
		id: "jailbreak-vocabulary",
		re: regexp.MustCompile(`(?i)(exfiltrate|leak|steal|bypass|jailbreak|dan\s+mode)`),
	},
	{
		id: "role-spoofing",
		re: regexp.MustCompile(`(?im)^\s*(system|assistant|user)\s*:`),
	},
}

// Detector is the semantic anomaly layer. Implementations judge whether a
// prompt that passed the structural and heuristic layers still looks like an
// injection attempt.
type Detector interface {
	// Detect returns true when the prompt is anomalous. An error means the
	// detector itself failed, which callers treat as a rejection.
	Detect(ctx context.Context, prompt string) (bool, error)
}

// Config holds guard settings.
type Config struct {
	// MaxPromptLen is the maximum prompt length in runes.
	MaxPromptLen int `koanf:"max_prompt_len"`
}

// ApplyDefaults sets default values for unset fields.
func (c *Config) ApplyDefaults() {
	if c.MaxPromptLen == 0 {
		c.MaxPromptLen = 2000
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.MaxPromptLen <= 0 {
		return fmt.Errorf("max prompt length must be positive, got %d", c.MaxPromptLen)
	}
	return nil
}

// Guard screens prompts. Construct with NewGuard.
type Guard struct {
	config   Config
	detector Detector
	logger   *logging.Logger
}

// NewGuard creates a Guard. A nil detector disables the semantic layer.
func NewGuard(config Config, detector Detector, logger *logging.Logger) (*Guard, error) {
	config.ApplyDefaults()
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Guard{config: config, detector: detector, logger: logger}, nil
}

// Check screens one prompt and returns a verdict. It never returns an error
// for prompt content; a failing semantic detector converts to a rejection so
// the gate fails closed.
func (g *Guard) Check(ctx context.Context, prompt string) Verdict {
	ctx, span := tracer.Start(ctx, "Guard.Check")
	defer span.End()

	v := g.check(ctx, prompt)
	span.SetAttributes(
		attribute.Bool("ok", v.OK),
		attribute.String("reason", v.Reason),
	)
	if !v.OK {
		// Log the reason code only. Prompt content never reaches logs.
		g.logger.Info(ctx, "prompt rejected",
			zap.String("reason", v.Reason),
			zap.Float64("confidence", v.Confidence),
		)
	}
	return v
}

func (g *Guard) check(ctx context.Context, prompt string) Verdict {
	if strings.TrimSpace(prompt) == "" {
		return reject(ReasonEmptyPrompt, 1.0)
	}
	if utf8.RuneCountInString(prompt) > g.config.MaxPromptLen {
		return reject(ReasonPromptTooLong, 1.0)
	}

	for _, p := range heuristicPatterns {
		if p.re.MatchString(prompt) {
			return reject("heuristic_match:"+p.id, heuristicConfidence)
		}
	}
	if hasTokenFlood(prompt, tokenRepeatThreshold) {
		return reject("heuristic_match:token-repetition", heuristicConfidence)
	}

	if g.detector != nil {
		anomalous, err := g.detector.Detect(ctx, prompt)
		if err != nil {
			g.logger.Warn(ctx, "semantic detector failed, rejecting prompt", zap.Error(err))
			return reject(ReasonSemanticAnomaly, semanticConfidence)
		}
		if anomalous {
			return reject(ReasonSemanticAnomaly, semanticConfidence)
		}
	}

	return allow
}

// CheckContent screens retrieved document text. Chunks get no special
// treatment: the same layers that gate a user prompt run here, so an
// injected or oversized chunk is rejected exactly as a prompt would be.
// Rejections are logged by the caller, which knows the chunk ID.
func (g *Guard) CheckContent(ctx context.Context, text string) Verdict {
	ctx, span := tracer.Start(ctx, "Guard.CheckContent")
	defer span.End()

	v := g.check(ctx, text)
	span.SetAttributes(
		attribute.Bool("ok", v.OK),
		attribute.String("reason", v.Reason),
	)
	return v
}

// hasTokenFlood reports whether any word repeats at least threshold times in
// a row. Comparison is case-insensitive over whitespace-split tokens.
func hasTokenFlood(prompt string, threshold int) bool {
	var prev string
	run := 0
	for _, tok := range strings.Fields(prompt) {
		tok = strings.ToLower(strings.Trim(tok, ".,;:!?\"'"))
		if tok == "" {
			continue
		}
		if tok == prev {
			run++
			if run >= threshold {
				return true
			}
		} else {
			prev = tok
			run = 1
		}
	}
	return false
}
