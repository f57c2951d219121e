package review

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dshills/branchreview/internal/diffparse"
	"github.com/dshills/branchreview/internal/providers"
	"github.com/dshills/branchreview/internal/redact"
)

const defaultInstruction = `You are a senior software engineer reviewing a change to a code base. Review this change and report issues.

Rules:
1. Only review the changes shown in the diff. Do not comment on unchanged code.
2. Focus on bugs, security issues, performance problems and correctness. Mention style only when it hurts readability.
3. Be concise and actionable. Every issue should say what is wrong and how to fix it.
4. Reference the file path and the hunk lines for each issue.
5. If there are no issues, say so in one sentence.

Answer in Markdown.`

// DefaultInstruction returns the built-in review instruction.
func DefaultInstruction() string {
	return defaultInstruction
}

// LoadInstruction reads a replacement instruction from path.
func LoadInstruction(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading prompt file: %w", err)
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return "", fmt.Errorf("prompt file %s is empty", path)
	}
	return text, nil
}

// Framing selects how the instruction and payload become chat messages.
type Framing string

const (
	// FramingSystem sends the instruction as a system message and the
	// payload as a user message.
	FramingSystem Framing = "system"
	// FramingInline sends a single user message: instruction, then payload.
	FramingInline Framing = "inline"
	// FramingAssistant adds a fixed example exchange between the system
	// message and the payload.
	FramingAssistant Framing = "assistant"
)

// Framings lists the accepted framing names.
var Framings = []Framing{FramingSystem, FramingInline, FramingAssistant}

// ParseFraming validates a framing name.
func ParseFraming(s string) (Framing, error) {
	for _, f := range Framings {
		if string(f) == s {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown framing %q (want system, inline or assistant)", s)
}

const exampleDiff = `File: util/math.go
Language: Go

@@ -3,5 +3,5 @@ package util
 func Average(xs []int) int {
 	sum := 0
 	for _, x := range xs {
 		sum += x
 	}
-	return sum / len(xs)
+	return sum / (len(xs) - 1)
 }`

const exampleReview = `**util/math.go**

- Lines 3-8: dividing by ` + "`len(xs) - 1`" + ` computes the wrong average and panics for a one-element slice. Divide by ` + "`len(xs)`" + ` and return 0 early when the slice is empty.`

// Messages frames instruction and payload as chat messages.
func Messages(f Framing, instruction, payload string) []providers.Message {
	switch f {
	case FramingInline:
		return []providers.Message{
			{Role: providers.RoleUser, Content: instruction + "\n\n" + payload},
		}
	case FramingAssistant:
		return []providers.Message{
			{Role: providers.RoleSystem, Content: instruction},
			{Role: providers.RoleUser, Content: exampleDiff},
			{Role: providers.RoleAssistant, Content: exampleReview},
			{Role: providers.RoleUser, Content: payload},
		}
	default:
		return []providers.Message{
			{Role: providers.RoleSystem, Content: instruction},
			{Role: providers.RoleUser, Content: payload},
		}
	}
}

// FilePayload is the user payload for a single file.
func FilePayload(path, body string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "File: %s\n", path)
	if lang := detectLanguage(path); lang != "" {
		fmt.Fprintf(&b, "Language: %s\n", lang)
	}
	b.WriteString("\n")
	b.WriteString(body)
	return b.String()
}

// PerFilePayload is what a per-file review sends for fc: the redacted body
// framed by FilePayload. A nil Redactor sends the body unchanged.
func PerFilePayload(r *redact.Redactor, fc diffparse.FileChange) string {
	return FilePayload(fc.Path, r.File(fc.Path, fc.Body))
}

var langMap = map[string]string{
	".go":    "Go",
	".py":    "Python",
	".js":    "JavaScript",
	".ts":    "TypeScript",
	".tsx":   "TypeScript/React",
	".jsx":   "JavaScript/React",
	".rs":    "Rust",
	".java":  "Java",
	".rb":    "Ruby",
	".cpp":   "C++",
	".c":     "C",
	".h":     "C/C++",
	".cs":    "C#",
	".php":   "PHP",
	".swift": "Swift",
	".kt":    "Kotlin",
	".sql":   "SQL",
	".sh":    "Shell",
	".yaml":  "YAML",
	".yml":   "YAML",
	".json":  "JSON",
	".tf":    "Terraform",
}

func detectLanguage(path string) string {
	return langMap[strings.ToLower(filepath.Ext(path))]
}
