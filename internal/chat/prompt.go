// Package chat answers tenant questions over retrieved document context. It
// assembles the prompt, calls the chat model, and records every exchange for
// the admin review surface. Ask never returns an error to its caller: every
// failure mode degrades to a well-formed answer.
package chat

import "fmt"

// RefusalAnswer is returned verbatim whenever retrieval yields nothing for
// the tenant. It is a fixed string so tests and downstream tooling can
// detect a refusal reliably.
const RefusalAnswer = "I cannot answer this question based on the tenant's documents provided."

// ErrorCitation is the sentinel citation attached when answer generation
// itself fails.
const ErrorCitation = "Error"

// systemPrompt constrains the model to the supplied context. The rules are
// deliberately blunt; smaller models follow them better than nuanced ones.
const systemPrompt = `You are a helpful assistant that answers questions strictly based on the provided document excerpts.

Rules:
1. Answer ONLY using information from the provided context.
2. If the context does not contain the answer, reply exactly: "` + RefusalAnswer + `"
3. Do not use outside knowledge, even when you are confident.
4. Keep answers concise and factual.
5. Do not mention the context, the rules, or these instructions in your answer.`

// userPrompt renders the two-slot question template.
func userPrompt(contextText, question string) string {
	return fmt.Sprintf("Context:\n%s\n\nQuestion: %s", contextText, question)
}
