package filter

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jhillyerd/enmime"
	"github.com/mikey/phish-fusion/internal/core"
)

// headerField is a header line added to a filtered message
type headerField struct {
	name  string
	value string
}

// splitMessage separates a raw message into the header block and the body
// text the scorer works on. The HTML part is preferred since it keeps link
// targets and markup; plain text is used otherwise.
func splitMessage(raw []byte) (core.RawMessage, *enmime.Envelope, error) {
	headerBlock, _ := splitHeaderBlock(raw)

	env, err := enmime.ReadEnvelope(bytes.NewReader(raw))
	if err != nil {
		return core.RawMessage{}, nil, fmt.Errorf("failed to parse message: %w", err)
	}

	body := env.HTML
	if strings.TrimSpace(body) == "" {
		body = env.Text
	}

	return core.RawMessage{
		Body:    body,
		Headers: string(headerBlock),
	}, env, nil
}

// splitHeaderBlock returns the raw header block and the offset at which the
// body starts
func splitHeaderBlock(raw []byte) ([]byte, int) {
	if i := bytes.Index(raw, []byte("\r\n\r\n")); i >= 0 {
		return raw[:i], i + 4
	}
	if i := bytes.Index(raw, []byte("\n\n")); i >= 0 {
		return raw[:i], i + 2
	}
	return raw, len(raw)
}

// rewriteMessage prepends fields to raw and, when subject is non-empty,
// replaces the existing Subject header (folded lines included). The body
// is left untouched.
func rewriteMessage(raw []byte, fields []headerField, subject string) []byte {
	headerBlock, bodyStart := splitHeaderBlock(raw)

	var out bytes.Buffer
	for _, f := range fields {
		fmt.Fprintf(&out, "%s: %s\r\n", f.name, sanitizeHeaderValue(f.value))
	}

	lines := strings.Split(strings.ReplaceAll(string(headerBlock), "\r\n", "\n"), "\n")
	replaced := false
	skipping := false
	for _, line := range lines {
		if skipping {
			if strings.HasPrefix(line, " ") || strings.HasPrefix(line, "\t") {
				continue
			}
			skipping = false
		}
		if subject != "" && !replaced && hasHeaderName(line, "Subject") {
			fmt.Fprintf(&out, "Subject: %s\r\n", sanitizeHeaderValue(subject))
			replaced = true
			skipping = true
			continue
		}
		out.WriteString(line)
		out.WriteString("\r\n")
	}
	if subject != "" && !replaced {
		fmt.Fprintf(&out, "Subject: %s\r\n", sanitizeHeaderValue(subject))
	}

	out.WriteString("\r\n")
	if bodyStart < len(raw) {
		out.Write(raw[bodyStart:])
	}
	return out.Bytes()
}

func hasHeaderName(line, name string) bool {
	colon := strings.IndexByte(line, ':')
	return colon > 0 && strings.EqualFold(strings.TrimSpace(line[:colon]), name)
}

func sanitizeHeaderValue(v string) string {
	return strings.NewReplacer("\r", " ", "\n", " ").Replace(v)
}
