package ui

// Unicode symbols for status indicators.
const (
	SymbolSuccess  = "✓" // Operation completed successfully
	SymbolFail     = "✗" // Operation failed
	SymbolPending  = "○" // Not yet started
	SymbolProgress = "◐" // In progress
	SymbolSkipped  = "⊘" // Skipped
)

// StatusSymbol returns the colored pass/fail symbol.
func StatusSymbol(ok bool) string {
	if ok {
		return Styled(SymbolSuccess, ColorSuccess)
	}
	return Styled(SymbolFail, ColorError)
}
