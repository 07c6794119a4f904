package service

import (
	"strings"

	"github.com/FACorreiaa/finance-assistant/internal/domain/assistant/gateway"
	"github.com/FACorreiaa/finance-assistant/internal/domain/assistant/repository"
)

const systemInstructions = "You are a personal finance assistant.\n\n" +
	"Rules:\n" +
	"- Answer using ONLY the financial context below and the conversation so far.\n" +
	"- Amounts in the context are decimal strings in the stated currency.\n" +
	"- Transfers and debts are not income or spending.\n" +
	"- If the context does not contain the answer, say so instead of guessing.\n" +
	"- If the context is marked truncated, older transactions were left out.\n" +
	"- Keep answers short and concrete. Do not give investment or legal advice.\n"

// buildPrompt grounds the history in the encoded snapshot. history is in seq
// order and ends with the message being answered.
func buildPrompt(snapshot []byte, history []*repository.ChatMessage) gateway.Prompt {
	var b strings.Builder
	b.WriteString(systemInstructions)
	b.WriteString("\nFinancial context (JSON):\n")
	b.Write(snapshot)
	b.WriteString("\n")

	p := gateway.Prompt{
		System: b.String(),
		Turns:  make([]gateway.Turn, 0, len(history)),
	}
	for _, m := range history {
		role := gateway.RoleUser
		if m.Role == repository.RoleAssistant {
			role = gateway.RoleModel
		}
		p.Turns = append(p.Turns, gateway.Turn{Role: role, Text: m.Content})
	}
	return p
}
