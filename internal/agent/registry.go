package agent

import "fmt"

// Get returns the adapter for kind.
func Get(kind Kind) (Adapter, error) {
	switch kind {
	case KindCodex:
		return NewCodex(), nil
	case KindOpencode:
		return NewOpencode(), nil
	case KindClaude:
		return NewClaude(), nil
	case KindGemini:
		return NewGemini(), nil
	case KindAmp:
		return NewAmp(), nil
	case KindManual:
		return NewManual(), nil
	default:
		return nil, fmt.Errorf("agent: unknown assistant kind %q", kind)
	}
}

// RequiresPregeneratedSessionID reports whether the caller must generate a
// session id before invoking Execute, rather than relying on a parsed id
// from output. Strictly required for claude; optional fallback for amp.
func RequiresPregeneratedSessionID(kind Kind) bool {
	return kind == KindClaude
}
