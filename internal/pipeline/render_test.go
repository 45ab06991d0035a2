package pipeline

import (
	"strings"
	"testing"

	"github.com/avetisov/charla/internal/ai"
)

func TestRenderAnalysis_WithMistakes(t *testing.T) {
	out := RenderAnalysis(&ai.Analysis{
		Transcription: "Yo es estudiante",
		Mistakes:      []string{"'es' should be 'soy' with yo", "missing article"},
		Corrections:   "Yo soy estudiante",
		IdealResponse: "Soy estudiante de medicina.",
		Tips:          []string{"Review ser conjugation"},
	})

	for _, want := range []string{
		"📝 **What I heard:**",
		`"Yo es estudiante"`,
		"❌ **Mistakes:**",
		"• 'es' should be 'soy' with yo",
		"• missing article",
		"✅ **Corrected version:**",
		"💡 **Ideal response:**",
		"📚 **Tips for improvement:**",
		"• Review ser conjugation",
		"/new",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("rendered output missing %q\n%s", want, out)
		}
	}
	if strings.Contains(out, "Great job!") {
		t.Error("encouragement shown despite mistakes")
	}
}

func TestRenderAnalysis_CleanResponse(t *testing.T) {
	out := RenderAnalysis(&ai.Analysis{
		Transcription: "Me gusta leer",
		Mistakes:      nil,
		Corrections:   "Me gusta leer",
		IdealResponse: "Me encanta leer novelas.",
		Tips:          []string{"Try more varied vocabulary"},
	})

	if !strings.Contains(out, "Great job!") {
		t.Error("clean response missing encouragement")
	}
	if strings.Contains(out, "❌") {
		t.Error("clean response contains a mistakes section")
	}
}
