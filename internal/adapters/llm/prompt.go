package llm

// systemInstruction is sent as the system turn by every chat adapter. The
// pipeline prompts carry the actual task; this only keeps answers short.
const systemInstruction = `
You are the parsing backend of a chat bot that files calendar events and to-do tasks.

Rules:
- Answer with the requested value only: no greetings, no explanations, no markdown.
- Keep the language of the user's message for titles and descriptions.
- When asked for a date or time, use the exact bracketed format you are given.
- If you cannot tell, answer with the fallback the question names.
`

// Prompt is the system + user pair an adapter sends.
type Prompt struct {
	System string
	User   string
}

// BuildPrompt wraps a pipeline prompt with the shared system instruction.
func BuildPrompt(userPrompt string) Prompt {
	return Prompt{
		System: systemInstruction,
		User:   userPrompt,
	}
}
