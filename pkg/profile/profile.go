// Package profile carries the candidate intake record and builds the
// system instruction seeded into the remote conversational session.
package profile

import "strings"

// Candidate is the opaque intake record produced by the profile form.
// Skills and Projects keep their submission order.
type Candidate struct {
	Text     string   `mapstructure:"text"`
	Skills   []string `mapstructure:"skills"`
	Projects []string `mapstructure:"projects"`
}

// PromptConfig tunes the generated system instruction.
type PromptConfig struct {
	Persona    string
	BasePrompt string
}

// BuildSystemInstruction assembles the interviewer system prompt from the
// candidate profile. The skills list is interpolated verbatim, in order.
func BuildSystemInstruction(c Candidate, cfg PromptConfig) string {
	var sb strings.Builder
	base := strings.TrimSpace(cfg.BasePrompt)
	if base == "" {
		base = defaultBasePrompt
	}
	sb.WriteString(base)
	if persona := strings.TrimSpace(cfg.Persona); persona != "" {
		sb.WriteString("\n\nPersona: ")
		sb.WriteString(persona)
	}
	if text := strings.TrimSpace(c.Text); text != "" {
		sb.WriteString("\n\nCandidate profile:\n")
		sb.WriteString(text)
	}
	if len(c.Skills) > 0 {
		sb.WriteString("\n\nDeclared skills: ")
		sb.WriteString(strings.Join(c.Skills, ", "))
	}
	if len(c.Projects) > 0 {
		sb.WriteString("\n\nProjects:\n")
		for _, p := range c.Projects {
			sb.WriteString("- ")
			sb.WriteString(p)
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

const defaultBasePrompt = "You are a professional technical interviewer conducting a live voice interview. " +
	"Ask one question at a time, follow up on the candidate's answers, and keep " +
	"questions grounded in the candidate's declared skills and projects."
