// Package sym defines the glyphs pipestage prints in CLI and log output.
// They are stable across commands so operators can grep for them.
package sym

const (
	Stage   = "⧉" // a stage runner instance
	Input   = "⇥" // chunk picked up from the input directory
	Publish = "⟶" // output published
	Archive = "✓" // source archived to completed
	DB      = "⊔" // provenance database
	AM      = "≡" // configuration
)

// ForState returns the glyph printed next to a chunk state name.
func ForState(state string) string {
	switch state {
	case "pending", "processing":
		return Input
	case "published":
		return Publish
	case "completed":
		return Archive
	default:
		return ""
	}
}
