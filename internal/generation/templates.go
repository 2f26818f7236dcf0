package generation

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"cadence/internal/program"
)

const systemPrompt = "You are an expert brand strategist writing premium, " +
	"client-ready program deliverables for a personal-brand accelerator."

const sectionMinWords = 800

// stageThemes names the curriculum focus of each stage. The theme feeds the
// prompt so every deliverable in a stage stays on the same track.
var stageThemes = [program.StageCount]string{
	"brand foundation and market understanding",
	"positioning and brand identity",
	"offer design and validation",
	"go-to-market planning",
	"marketing and audience growth",
	"operations and delivery systems",
	"financial planning and unit economics",
	"launch execution and long-term growth",
}

var titleCaser = cases.Title(language.English)

// StageTheme returns the curriculum focus line for a stage, title-cased for
// display surfaces. Validate the stage first; out-of-range returns "".
func StageTheme(stage int) string {
	if program.ValidateStage(stage) != nil {
		return ""
	}
	return titleCaser.String(stageThemes[stage-1])
}

// buildContext flattens the client profile into the prompt's context block.
// Core identity fields come first in a fixed order; remaining non-empty
// fields follow.
func buildContext(client *program.Client) string {
	parts := make([]string, 0, 6)
	if client.Name != "" {
		parts = append(parts, "Client: "+client.Name)
	}
	if client.Niche != "" {
		parts = append(parts, "Niche: "+client.Niche)
	}
	if client.Audience != "" {
		parts = append(parts, "Target Audience: "+client.Audience)
	}
	if client.Goals != "" {
		parts = append(parts, "Goals: "+client.Goals)
	}
	if client.BusinessSummary != "" {
		parts = append(parts, "Business Summary: "+client.BusinessSummary)
	}
	return strings.Join(parts, "\n")
}

// summarize truncates previously generated content for the coherence block.
func summarize(content string) string {
	const limit = 300
	runes := []rune(strings.TrimSpace(content))
	if len(runes) <= limit {
		return string(runes)
	}
	return string(runes[:limit]) + "..."
}

type priorSection struct {
	name    string
	content string
}

// buildPrompt assembles the full user prompt for one slot. The last three
// sections generated in the same run are summarized into a coherence block.
func buildPrompt(client *program.Client, stage, slot int, prior []priorSection) string {
	name := program.SlotName(stage, slot)

	var previousContext string
	if len(prior) > 0 {
		start := 0
		if len(prior) > 3 {
			start = len(prior) - 3
		}
		summaries := make([]string, 0, 3)
		for _, section := range prior[start:] {
			summaries = append(summaries, section.name+": "+summarize(section.content))
		}
		previousContext = strings.Join(summaries, "\n\n")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "You are writing one deliverable of a staged brand-building program. The current stage focuses on %s.\n\n", stageThemes[stage-1])
	fmt.Fprintf(&b, "TARGET WORD COUNT: Minimum %d words for this document.\n\n", sectionMinWords)
	b.WriteString("CLIENT PROFILE:\n")
	b.WriteString(buildContext(client))
	b.WriteString("\n\n")
	if previousContext != "" {
		b.WriteString("PREVIOUS DOCUMENTS CONTEXT (for coherence):\n")
		b.WriteString(previousContext)
		b.WriteString("\n\n")
	}
	fmt.Fprintf(&b, "DOCUMENT TO WRITE: %s\n\n", name)
	fmt.Fprintf(&b, "Write a detailed %q document (minimum %d words). Be comprehensive, professional, and tailored to this client.\n\n", name, sectionMinWords)
	b.WriteString(`INSTRUCTIONS:
- Write in a professional, encouraging tone suitable for a paying client
- Include specific details from the client profile
- Structure with clear subsections and headers
- Make it actionable and strategic
- Maintain consistency with previous documents

Begin the document content now:`)
	return b.String()
}

// documentHeader renders the markdown header prepended to stored content.
func documentHeader(client *program.Client, stage, slot int) string {
	return fmt.Sprintf("# %s\n\nStage %d: %s\nPrepared for %s\n\n",
		program.SlotName(stage, slot), stage, StageTheme(stage), client.Name)
}
