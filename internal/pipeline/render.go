package pipeline

import (
	"fmt"
	"strings"

	"github.com/avetisov/charla/internal/ai"
)

const encouragement = "✨ **Great job!** No significant mistakes found."

// RenderAnalysis formats structured feedback as a Markdown message. A
// clean response gets the encouragement line instead of a mistakes
// section; otherwise every mistake becomes its own bullet.
func RenderAnalysis(a *ai.Analysis) string {
	var b strings.Builder

	fmt.Fprintf(&b, "📝 **What I heard:**\n%q\n\n", a.Transcription)

	if len(a.Mistakes) > 0 {
		b.WriteString("❌ **Mistakes:**\n")
		for _, mistake := range a.Mistakes {
			fmt.Fprintf(&b, "• %s\n", mistake)
		}
		b.WriteString("\n")
	} else {
		b.WriteString(encouragement + "\n\n")
	}

	fmt.Fprintf(&b, "✅ **Corrected version:**\n%q\n\n", a.Corrections)
	fmt.Fprintf(&b, "💡 **Ideal response:**\n%q\n\n", a.IdealResponse)

	b.WriteString("📚 **Tips for improvement:**\n")
	for _, tip := range a.Tips {
		fmt.Fprintf(&b, "• %s\n", tip)
	}

	b.WriteString("\n_Use /new for another practice prompt!_")
	return b.String()
}
