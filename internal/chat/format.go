package chat

import (
	"fmt"
	"strings"

	"github.com/ziadkadry99/docchat/internal/llm"
	"github.com/ziadkadry99/docchat/internal/search"
	"github.com/ziadkadry99/docchat/internal/session"
)

// Assembled is the prompt material for one completion.
type Assembled struct {
	ChatHistory   []llm.Message
	DocumentsText string
}

// FormatOptions tune Format. The zero value formats documents unchanged.
type FormatOptions struct {
	// MaxDocumentChars truncates each chunk to this many characters.
	// Zero means unlimited.
	MaxDocumentChars int
}

// Format converts history into role/content messages and documents into
// the text block the prompt template embeds.
func Format(history []session.Turn, docs []search.Document) Assembled {
	return FormatOptions{}.Format(history, docs)
}

// Format is the package-level Format with o applied.
func (o FormatOptions) Format(history []session.Turn, docs []search.Document) Assembled {
	msgs := make([]llm.Message, 0, len(history))
	for _, t := range history {
		msgs = append(msgs, llm.Message{Role: llm.Role(t.Role), Content: t.Content})
	}

	blocks := make([]string, 0, len(docs))
	for _, d := range docs {
		blocks = append(blocks, fmt.Sprintf("## Document: %s\nPath: %s\n%s", d.Title, d.Path, o.truncate(d.Chunk)))
	}

	return Assembled{
		ChatHistory:   msgs,
		DocumentsText: strings.Join(blocks, "\n\n"),
	}
}

func (o FormatOptions) truncate(s string) string {
	if o.MaxDocumentChars <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= o.MaxDocumentChars {
		return s
	}
	return string(r[:o.MaxDocumentChars])
}
