package services

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
)

// knowledgeBase is the on-disk FAQ format.
type knowledgeBase struct {
	FAQ []faqEntry `json:"faq"`
}

type faqEntry struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// LoadKnowledge reads the FAQ file and flattens it into the prompt context
// string handed to the classifier. A missing or unreadable file is not fatal:
// the bot still classifies, just without FAQ grounding.
func LoadKnowledge(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		slog.Warn("Knowledge base not loaded", "path", path, "error", err)
		return ""
	}

	var kb knowledgeBase
	if err := json.Unmarshal(data, &kb); err != nil {
		slog.Error("Failed to parse knowledge base", "path", path, "error", err)
		return ""
	}

	var b strings.Builder
	for _, item := range kb.FAQ {
		fmt.Fprintf(&b, "Pregunta:\n%s\n", item.Question)
		fmt.Fprintf(&b, "Respuesta:\n%s\n", item.Answer)
		b.WriteString(strings.Repeat("-", 50) + "\n")
	}

	slog.Info("Knowledge base loaded", "path", path, "entries", len(kb.FAQ))
	return b.String()
}
