package tui

import (
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/charmbracelet/lipgloss"

	"github.com/parleychat/parley/pkg/chat"
)

// Formatter renders messages for the chat view: role-colored prefixes,
// syntax-highlighted code fences.
type Formatter struct {
	userStyle      lipgloss.Style
	assistantStyle lipgloss.Style
	errorStyle     lipgloss.Style
	dimStyle       lipgloss.Style

	chromaFormatter chroma.Formatter
}

func NewFormatter() *Formatter {
	formatter := formatters.Get("terminal16m")
	if formatter == nil {
		formatter = formatters.Fallback
	}

	return &Formatter{
		userStyle:      lipgloss.NewStyle().Foreground(lipgloss.Color("#FFB000")).Bold(true),
		assistantStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("#00FF87")),
		errorStyle:     lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6347")),
		dimStyle:       lipgloss.NewStyle().Foreground(lipgloss.Color("#A9A9A9")),

		chromaFormatter: formatter,
	}
}

// Render returns the message as display lines.
func (f *Formatter) Render(msg chat.Message) []string {
	prefix := f.prefix(msg)
	body := f.highlightFences(msg.Content)

	lines := strings.Split(body, "\n")
	out := make([]string, 0, len(lines))
	for i, line := range lines {
		if i == 0 {
			out = append(out, prefix+line)
		} else {
			out = append(out, line)
		}
	}
	return out
}

func (f *Formatter) prefix(msg chat.Message) string {
	switch msg.Role {
	case chat.RoleUser:
		return f.userStyle.Render("you> ")
	case chat.RoleAssistant:
		return f.assistantStyle.Render("ai> ")
	case chat.RoleError:
		return f.errorStyle.Render("err> ")
	default:
		return f.dimStyle.Render(msg.Role + "> ")
	}
}

// highlightFences syntax-highlights ```lang fenced blocks and leaves the
// rest untouched.
func (f *Formatter) highlightFences(content string) string {
	if !strings.Contains(content, "```") {
		return content
	}

	var out strings.Builder
	rest := content
	for {
		open := strings.Index(rest, "```")
		if open < 0 {
			out.WriteString(rest)
			break
		}
		out.WriteString(rest[:open])
		rest = rest[open+3:]

		newline := strings.Index(rest, "\n")
		if newline < 0 {
			// Unterminated fence mid-stream; show as-is
			out.WriteString("```" + rest)
			break
		}
		language := strings.TrimSpace(rest[:newline])
		rest = rest[newline+1:]

		closing := strings.Index(rest, "```")
		if closing < 0 {
			out.WriteString(f.highlight(rest, language))
			break
		}
		out.WriteString(f.highlight(rest[:closing], language))
		rest = rest[closing+3:]
	}
	return out.String()
}

func (f *Formatter) highlight(code, language string) string {
	var lexer chroma.Lexer
	if language != "" {
		lexer = lexers.Get(language)
	}
	if lexer == nil {
		lexer = lexers.Analyse(code)
	}
	if lexer == nil {
		lexer = lexers.Fallback
	}

	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return code
	}

	var buf strings.Builder
	if err := f.chromaFormatter.Format(&buf, styles.Get("monokai"), iterator); err != nil {
		return code
	}
	return buf.String()
}
