// Package text renders bot replies in the chat client's markup.
package text

import (
	"fmt"
	"regexp"
	"strings"
)

// Renderer produces the summary-plus-detail presentation used in replies.
type Renderer interface {
	// MakeBlob returns a clickable title that expands into body.
	MakeBlob(title, body string) string
	// MakeChatCmd returns a link that runs cmd in the reader's client.
	MakeChatCmd(label, cmd string) string
	Highlight(s string) string
}

// AOML renders the chat client's native markup.
type AOML struct{}

var _ Renderer = AOML{}

func (AOML) MakeBlob(title, body string) string {
	return fmt.Sprintf(`<a href="text://%s">%s</a>`, strings.ReplaceAll(body, `"`, "&quot;"), title)
}

func (AOML) MakeChatCmd(label, cmd string) string {
	return fmt.Sprintf("<a href='chatcmd://%s'>%s</a>", strings.ReplaceAll(cmd, "'", "&#39;"), label)
}

func (AOML) Highlight(s string) string {
	return "<highlight>" + s + "<end>"
}

// Plain renders replies for terminals and logs. Blobs are expanded inline
// and markup is removed.
type Plain struct{}

var _ Renderer = Plain{}

func (Plain) MakeBlob(title, body string) string {
	return "[" + title + "]\n\n" + Strip(body)
}

func (Plain) MakeChatCmd(label, cmd string) string {
	return fmt.Sprintf("%s (%s)", label, cmd)
}

func (Plain) Highlight(s string) string {
	return s
}

var (
	invisibleRe = regexp.MustCompile(`<black>(.*?)<end>`)
	tagRe       = regexp.MustCompile(`</?[a-z][a-z0-9]*>`)

	entityReplacer = strings.NewReplacer("&lt;", "<", "&gt;", ">", "&quot;", `"`, "&#39;", "'", "&amp;", "&")
)

// Strip removes markup tags. Invisible padding becomes spaces so columns
// stay aligned.
func Strip(s string) string {
	s = invisibleRe.ReplaceAllStringFunc(s, func(m string) string {
		inner := invisibleRe.FindStringSubmatch(m)[1]
		return strings.Repeat(" ", len(inner))
	})
	s = strings.ReplaceAll(s, "<tab>", "    ")
	s = tagRe.ReplaceAllString(s, "")
	return entityReplacer.Replace(s)
}
