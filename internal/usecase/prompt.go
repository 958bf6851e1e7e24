package usecase

import (
	"bytes"
	"embed"
	"fmt"
	"strconv"
	"strings"
	"text/template"

	"ragrec/internal/domain"
)

//go:embed templates/*.txt
var promptTemplates embed.FS

var (
	recommendTmpl = mustTemplate("templates/recommend.txt")
	strictTmpl    = mustTemplate("templates/strict.txt")
	systemPrompt  = mustRead("templates/system.txt")
)

// Prompt is a rendered system/user prompt pair for the generative model.
type Prompt struct {
	System string `json:"system"`
	User   string `json:"user"`
}

// PromptData is the input of the recommendation template.
type PromptData struct {
	Browsed     []domain.Item
	Preferences []string
	Candidates  []domain.Item
	Count       int
}

// RenderPrompt renders the recommendation prompt.
func RenderPrompt(data PromptData) (Prompt, error) {
	if data.Count <= 0 {
		data.Count = DefaultRecommendCount
	}
	var buf bytes.Buffer
	if err := recommendTmpl.Execute(&buf, data); err != nil {
		return Prompt{}, fmt.Errorf("failed to render prompt: %w", err)
	}
	return Prompt{System: systemPrompt, User: buf.String()}, nil
}

// StrictPrompt returns base with formatting instructions appended for retry
// attempt n (n >= 1). Higher attempts add stricter rules. It does not modify base.
func StrictPrompt(base Prompt, attempt int) Prompt {
	if attempt <= 0 {
		return base
	}
	var buf bytes.Buffer
	if err := strictTmpl.Execute(&buf, struct{ Attempt int }{attempt}); err != nil {
		return base
	}
	return Prompt{System: base.System, User: base.User + "\n" + buf.String()}
}

func mustRead(name string) string {
	data, err := promptTemplates.ReadFile(name)
	if err != nil {
		panic(fmt.Sprintf("template not found: %v", err))
	}
	return strings.TrimSpace(string(data))
}

func mustTemplate(name string) *template.Template {
	return template.Must(template.New(name).Funcs(templateFuncs()).Parse(mustRead(name) + "\n"))
}

func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"join": strings.Join,
		"inc":  func(i int) int { return i + 1 },
		"na": func(s string) string {
			if s == "" {
				return "N/A"
			}
			return s
		},
		"price": func(p float64) string {
			return strconv.FormatFloat(p, 'f', 2, 64)
		},
		"first": func(n int, values []string) []string {
			if len(values) > n {
				return values[:n]
			}
			return values
		},
	}
}
