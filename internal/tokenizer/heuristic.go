package tokenizer

import (
	"math"
	"regexp"
	"strings"
)

const charsPerToken = 4

var urlPattern = regexp.MustCompile(`https?://`)

// Heuristic approximates English tokenization at ~4 characters per token,
// with multiplicative adjustments for content that tokenizes less
// efficiently. It is deliberately cheap: good enough for budget decisions
// and summarization thresholds, not for billing.
type Heuristic struct{}

func NewHeuristic() *Heuristic {
	return &Heuristic{}
}

func (h *Heuristic) Estimate(text string) int {
	if text == "" {
		return 0
	}

	base := math.Ceil(float64(len(text)) / charsPerToken)

	multiplier := 1.0
	if strings.Contains(text, "`") {
		// Fenced or inline code spans
		multiplier += 0.2
	}
	if containsEmoji(text) {
		multiplier += 0.1
	}
	if urlPattern.MatchString(text) {
		multiplier += 0.1
	}

	return int(math.Ceil(base * multiplier))
}

func containsEmoji(text string) bool {
	for _, r := range text {
		// Misc symbols / dingbats block and the emoji planes
		if (r >= 0x2600 && r <= 0x27BF) || (r >= 0x1F000 && r <= 0x1FAFF) {
			return true
		}
	}
	return false
}
