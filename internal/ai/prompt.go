package ai

import (
	"fmt"
	"strings"

	"github.com/askdb/askdb/internal/model"
)

// sqlSystemInstruction steers the model toward a single bare SQL statement.
const sqlSystemInstruction = `You are an expert SQL generator.
Convert natural language requests into a single valid SQL query.

Rules:
- Use exact table and column names from the schema.
- Use proper JOIN types and conditions.
- Never generate DELETE or UPDATE without a WHERE clause.
- Suggest LIMIT clauses for potentially large result sets.

Output ONLY the SQL query: no markdown fences, no explanation.`

var modeInstructions = map[model.Mode]string{
	model.ModeAssistant: `You are a database assistant. Answer questions about
databases, SQL, and the connected schema. Be accurate and concise, and show
SQL examples where they help.`,
	model.ModeTeaching: `You are a database educator. Explain the concept the
user asks about step by step, from fundamentals to the practical details,
with small runnable SQL examples against the connected schema.`,
	model.ModeDebug: `You are a database troubleshooter. Diagnose the
described problem systematically: identify the likely root cause, explain
the reasoning, and give a concrete fix with SQL where applicable.`,
	model.ModeOptimization: `You are a database performance specialist.
Analyze the given query against the schema: point out scans, missing
indexes, and join-order issues, then propose a rewritten query and the
supporting DDL.`,
}

// ModeInstruction returns the system instruction for a conversational mode.
// Modes without a dedicated instruction fall back to the assistant's.
func ModeInstruction(mode model.Mode) string {
	if instr, ok := modeInstructions[mode]; ok {
		return instr
	}
	return modeInstructions[model.ModeAssistant]
}

// historyTurns is how many previous query/outcome turns ride along in the
// SQL-generation prompt.
const historyTurns = 3

// BuildSQLMessages assembles the message list for natural-language-to-SQL
// generation: system instruction, schema context, recent turns, and the
// request itself.
func BuildSQLMessages(question string, snapshot *model.SchemaSnapshot, turns []model.ConversationTurn) []Message {
	var b strings.Builder

	if len(turns) > 0 {
		start := len(turns) - historyTurns
		if start < 0 {
			start = 0
		}
		b.WriteString("Previous context:\n")
		for _, turn := range turns[start:] {
			fmt.Fprintf(&b, "- %s", turn.Query)
			if turn.Outcome != nil && turn.Outcome.Success {
				fmt.Fprintf(&b, " (%d rows)", turn.Outcome.RowCount)
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	b.WriteString("Database schema:\n")
	b.WriteString(snapshot.Summary(0))
	b.WriteString("\n\nUser request: ")
	b.WriteString(strings.TrimSpace(question))
	b.WriteString("\n\nGenerate the SQL query:")

	return []Message{
		{Role: "system", Content: sqlSystemInstruction},
		{Role: "user", Content: b.String()},
	}
}

// BuildChatMessages assembles the message list for a conversational mode:
// mode instruction plus schema context, recent chat history, and the new
// user message.
func BuildChatMessages(mode model.Mode, userMessage string, snapshot *model.SchemaSnapshot, history []model.ChatMessage) []Message {
	system := ModeInstruction(mode)
	if snapshot != nil && len(snapshot.Tables) > 0 {
		system += "\n\nConnected database schema:\n" + snapshot.Summary(0)
	}

	messages := []Message{{Role: "system", Content: system}}
	for _, msg := range history {
		if msg.Role != "user" && msg.Role != "assistant" {
			continue
		}
		messages = append(messages, Message{Role: msg.Role, Content: msg.Content})
	}
	return append(messages, Message{Role: "user", Content: strings.TrimSpace(userMessage)})
}

// BuildOptimizationMessages assembles the second-pass analysis prompt for a
// query that already executed, carrying the execution outcome as context.
func BuildOptimizationMessages(sqlText string, outcome *model.QueryOutcome, snapshot *model.SchemaSnapshot) []Message {
	var b strings.Builder
	b.WriteString("Analyze and optimize this executed query:\n\n")
	b.WriteString(sqlText)

	if outcome != nil {
		b.WriteString("\n\nExecution result:\n")
		fmt.Fprintf(&b, "- Query kind: %s\n", outcome.QueryKind)
		if outcome.QueryKind == model.KindRead {
			fmt.Fprintf(&b, "- Rows returned: %d\n", outcome.RowCount)
		} else {
			fmt.Fprintf(&b, "- Rows affected: %d\n", outcome.RowsAffected)
		}
	}

	b.WriteString("\nDatabase schema:\n")
	b.WriteString(snapshot.Summary(0))
	b.WriteString("\n\nProvide a performance optimization analysis.")

	return []Message{
		{Role: "system", Content: ModeInstruction(model.ModeOptimization)},
		{Role: "user", Content: b.String()},
	}
}
