package logparse

import (
	"github.com/pkoukk/tiktoken-go"
)

// runesPerToken approximates token density for models without a known
// tiktoken encoding.
const runesPerToken = 4

// TruncateToTokens deterministically trims text to at most budget prompt
// tokens, keeping the tail. The tail carries the failure in build logs, so
// head truncation would discard exactly the part worth analyzing.
func TruncateToTokens(text, model string, budget int) string {
	if budget <= 0 || text == "" {
		return text
	}

	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		enc, err = tiktoken.GetEncoding("cl100k_base")
	}
	if err != nil {
		return truncateRunes(text, budget*runesPerToken)
	}

	ids := enc.Encode(text, nil, nil)
	if len(ids) <= budget {
		return text
	}
	return enc.Decode(ids[len(ids)-budget:])
}

func truncateRunes(text string, keep int) string {
	r := []rune(text)
	if len(r) <= keep {
		return text
	}
	return string(r[len(r)-keep:])
}
