package chunker

// EstimateTokens gives a rough token count from a character count using
// the ~4 chars/token heuristic. This is intentionally simple; exact
// tokenization is not required for budgeting, only determinism.
func EstimateTokens(chars int) int {
	if chars <= 0 {
		return 0
	}
	tokens := chars / 4
	if tokens < 1 {
		tokens = 1
	}
	return tokens
}
