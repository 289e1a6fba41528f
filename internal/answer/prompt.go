package answer

import (
	"strings"

	"github.com/cramlabs/cramd/internal/llm"
	"github.com/cramlabs/cramd/internal/session"
)

// groundingInstructions constrain the model to the supplied material. The
// full document text is embedded below them in the same system message.
const groundingInstructions = `You are a study assistant. Answer questions using ONLY the study material provided below.

Rules:
- Base every answer strictly on the study material. Never invent facts, figures, or code that are not present in it.
- If the material does not contain the information needed to answer, say so plainly: "I cannot find that information in the document."
- Greetings and small talk may be answered naturally without consulting the material.
- Quote or closely paraphrase the material rather than embellishing it.`

// BuildMessages assembles the grounding message set: a system message
// carrying the instructions plus the entire document text, the recent turns
// replayed in order as user/assistant pairs, and the new question last.
func BuildMessages(docText string, recent []session.Turn, question string) []llm.Message {
	var sys strings.Builder
	sys.WriteString(groundingInstructions)
	sys.WriteString("\n\nStudy material:\n")
	sys.WriteString(docText)

	messages := make([]llm.Message, 0, 2+2*len(recent))
	messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: sys.String()})
	for _, turn := range recent {
		messages = append(messages,
			llm.Message{Role: llm.RoleUser, Content: turn.Question},
			llm.Message{Role: llm.RoleAssistant, Content: turn.Answer},
		)
	}
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: question})
	return messages
}
