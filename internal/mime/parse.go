// Package mime decodes raw RFC 822 messages into renderable records using enmime.
package mime

import (
	"bytes"
	"fmt"
	"math"
	"strings"

	"github.com/jhillyerd/enmime"
)

// Message is a decoded email message. Header fields are best-effort decoded
// and never null; Text and HTML default to "" and Attachments to an empty
// slice. A Message is not modified after Parse returns.
type Message struct {
	Subject string
	From    string
	To      string
	Date    string // passed through undecoded; dates are ASCII by convention

	Text        string
	HTML        string
	Attachments []Attachment
}

// Attachment is a decoded attachment part. Content holds the fully decoded
// bytes, never the base64 wire form.
type Attachment struct {
	Filename string
	SizeKB   float64
	Content  []byte
}

// Parse decodes a raw message into a Message. It performs no I/O and
// tolerates malformed MIME: unreadable parts degrade to blank or are
// skipped instead of failing the whole message. The error return is
// reserved for input that cannot be read as a message at all.
func Parse(raw []byte) (*Message, error) {
	env, err := enmime.ReadEnvelope(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("read envelope: %w", err)
	}

	msg := &Message{
		Subject:     DecodeHeader(rawHeader(env, "Subject")),
		From:        DecodeHeader(rawHeader(env, "From")),
		To:          DecodeHeader(rawHeader(env, "To")),
		Date:        rawHeader(env, "Date"),
		Attachments: []Attachment{},
	}

	collectParts(env.Root, msg)
	return msg, nil
}

// rawHeader returns the undecoded header value from the root part.
func rawHeader(env *enmime.Envelope, name string) string {
	if env.Root == nil || env.Root.Header == nil {
		return ""
	}
	return env.Root.Header.Get(name)
}

// collectParts walks the MIME tree depth-first, accumulating body text and
// attachments. Container parts contribute nothing themselves. Duplicated
// branches (e.g. repeated alternatives) concatenate rather than dedupe.
func collectParts(p *enmime.Part, msg *Message) {
	for ; p != nil; p = p.NextSibling {
		switch {
		case baseValue(p.Disposition) == "attachment":
			name := p.FileName
			if name == "" {
				name = "attachment"
			}
			msg.Attachments = append(msg.Attachments, Attachment{
				Filename: name,
				SizeKB:   roundKB(len(p.Content)),
				Content:  p.Content,
			})
		case baseValue(p.ContentType) == "text/plain":
			msg.Text += ensureUTF8(p.Content)
		case baseValue(p.ContentType) == "text/html":
			msg.HTML += ensureUTF8(p.Content)
		}
		collectParts(p.FirstChild, msg)
	}
}

// baseValue strips parameters from a Content-Type or Content-Disposition
// value, e.g. "text/plain; charset=utf-8" becomes "text/plain".
func baseValue(v string) string {
	if idx := strings.IndexByte(v, ';'); idx >= 0 {
		v = v[:idx]
	}
	return strings.ToLower(strings.TrimSpace(v))
}

// roundKB converts a byte count to kilobytes rounded to two decimals.
func roundKB(n int) float64 {
	return math.Round(float64(n)/1024*100) / 100
}
