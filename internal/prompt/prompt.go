// Package prompt loads prompty-style chat templates and runs them against
// an llm.Provider.
//
// A template file starts with YAML front matter between "---" lines
// (name, description, model parameters, declared inputs) followed by a body
// split into "system:", "user:" and "assistant:" sections. Each section is a
// text/template rendered with the inputs. A "chat_history" input holding
// []llm.Message is spliced in as conversation messages right before the
// last user section.
package prompt

import (
	"bufio"
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"

	"github.com/ziadkadry99/docchat/internal/llm"
)

//go:embed chat.prompty
var defaultChatTemplate []byte

// Input names every chat template must declare.
const (
	InputChatInput   = "chat_input"
	InputChatHistory = "chat_history"
	InputDocuments   = "documents"
)

// RequiredChatInputs lists the inputs the chat orchestrator provides.
var RequiredChatInputs = []string{InputChatInput, InputChatHistory, InputDocuments}

// Parameters are the model parameters a template may pin.
type Parameters struct {
	Temperature *float64 `yaml:"temperature"`
	MaxTokens   int      `yaml:"max_tokens"`
}

// InputSpec describes one declared input.
type InputSpec struct {
	Type        string `yaml:"type"`
	Description string `yaml:"description"`
}

type frontMatter struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Model       struct {
		Parameters Parameters `yaml:"parameters"`
	} `yaml:"model"`
	Inputs map[string]InputSpec `yaml:"inputs"`
}

type section struct {
	role llm.Role
	tmpl *template.Template
}

// Template is a parsed prompt template.
type Template struct {
	Name        string
	Description string
	Parameters  Parameters
	Inputs      map[string]InputSpec

	sections []section
}

var sectionHeader = regexp.MustCompile(`^(system|user|assistant):\s*$`)

// Default returns the embedded document chat template.
func Default() (*Template, error) {
	return Parse("chat.prompty", defaultChatTemplate)
}

// Load reads and parses a template file. An empty path loads Default.
func Load(path string) (*Template, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading prompt %s: %w", path, err)
	}
	return Parse(path, data)
}

// Parse parses template source. name is used in error messages.
func Parse(name string, data []byte) (*Template, error) {
	header, body, err := splitFrontMatter(data)
	if err != nil {
		return nil, fmt.Errorf("prompt %s: %w", name, err)
	}

	var fm frontMatter
	if err := yaml.Unmarshal(header, &fm); err != nil {
		return nil, fmt.Errorf("prompt %s: front matter: %w", name, err)
	}

	t := &Template{
		Name:        fm.Name,
		Description: fm.Description,
		Parameters:  fm.Model.Parameters,
		Inputs:      fm.Inputs,
	}

	var (
		role    llm.Role
		text    strings.Builder
		started bool
	)
	flush := func() error {
		if !started {
			if strings.TrimSpace(text.String()) != "" {
				return errors.New("text before the first role section")
			}
			return nil
		}
		tmpl, err := template.New(fmt.Sprintf("%s#%d", name, len(t.sections))).
			Option("missingkey=error").
			Parse(strings.TrimSpace(text.String()))
		if err != nil {
			return err
		}
		t.sections = append(t.sections, section{role: role, tmpl: tmpl})
		return nil
	}

	scanner := bufio.NewScanner(bytes.NewReader(body))
	for scanner.Scan() {
		line := scanner.Text()
		if m := sectionHeader.FindStringSubmatch(line); m != nil {
			if err := flush(); err != nil {
				return nil, fmt.Errorf("prompt %s: %w", name, err)
			}
			role, started = llm.Role(m[1]), true
			text.Reset()
			continue
		}
		text.WriteString(line)
		text.WriteByte('\n')
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("prompt %s: %w", name, err)
	}
	if err := flush(); err != nil {
		return nil, fmt.Errorf("prompt %s: %w", name, err)
	}
	if len(t.sections) == 0 {
		return nil, fmt.Errorf("prompt %s: no role sections", name)
	}

	return t, nil
}

func splitFrontMatter(data []byte) (header, body []byte, err error) {
	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	if !strings.HasPrefix(text, "---\n") {
		return nil, nil, errors.New("missing front matter")
	}
	rest := text[len("---\n"):]
	end := strings.Index(rest, "\n---\n")
	if end < 0 {
		return nil, nil, errors.New("unterminated front matter")
	}
	return []byte(rest[:end]), []byte(rest[end+len("\n---\n"):]), nil
}

// Require checks that the template declares every named input.
func (t *Template) Require(names ...string) error {
	var missing []string
	for _, n := range names {
		if _, ok := t.Inputs[n]; !ok {
			missing = append(missing, n)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("prompt %q does not declare inputs: %s", t.Name, strings.Join(missing, ", "))
	}
	return nil
}

// Render produces the messages for one call.
func (t *Template) Render(inputs map[string]any) ([]llm.Message, error) {
	history, _ := inputs[InputChatHistory].([]llm.Message)

	lastUser := -1
	for i, s := range t.sections {
		if s.role == llm.RoleUser {
			lastUser = i
		}
	}

	messages := make([]llm.Message, 0, len(t.sections)+len(history))
	for i, s := range t.sections {
		if i == lastUser {
			messages = append(messages, history...)
		}
		var buf bytes.Buffer
		if err := s.tmpl.Execute(&buf, inputs); err != nil {
			return nil, fmt.Errorf("rendering %s section: %w", s.role, err)
		}
		messages = append(messages, llm.Message{Role: s.role, Content: buf.String()})
	}
	if lastUser < 0 {
		messages = append(messages, history...)
	}
	return messages, nil
}
