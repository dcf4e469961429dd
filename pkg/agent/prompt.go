package agent

import (
	"fmt"
	"strings"
)

const generalPersona = `You are a helpful assistant for a development team. You answer questions about the codebase, project documentation and connected services.

You have tools available. Use them whenever they can ground your answer in real data instead of guessing. After a tool returns, incorporate its output into your reply. If a tool fails, say so and continue with what you have.

Available tools:
%s
Answer in the language the user writes in. Be concise and concrete.`

const reviewSystemPrompt = `You are a senior software engineer performing a code review. You are thorough, direct and constructive. You may use the available tools to inspect the repository for additional context before concluding.`

// generalSystemPrompt builds the general-mode system prompt with the current
// tool inventory enumerated, so the model knows what it can call.
func (s *Service) generalSystemPrompt() string {
	if s.systemPrompt != "" {
		return s.systemPrompt
	}

	var b strings.Builder
	for _, desc := range s.registry.Descriptors() {
		fmt.Fprintf(&b, "- **%s** - %s\n", desc.Name, desc.Description)
	}
	return fmt.Sprintf(generalPersona, b.String())
}

// reviewPrompt wraps the collected change payload in the analytical framing
// for the review mode.
func reviewPrompt(payload string) string {
	return fmt.Sprintf(`Review the following changes and produce a structured report.

Cover each of these aspects:
- Code quality and adherence to project conventions
- Potential bugs and logic errors
- Performance concerns
- Readability and maintainability
- Architecture and design
- Security issues
- Testability and missing test coverage

For every finding, reference the file and the relevant lines, explain the problem and suggest a fix. Finish with a short overall verdict.

%s`, payload)
}
