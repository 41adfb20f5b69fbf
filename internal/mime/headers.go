package mime

import (
	"io"
	"mime"

	"golang.org/x/text/transform"
)

// wordDecoder decodes RFC 2047 encoded words, resolving charsets through the
// same encoding table used for message bodies. Unknown charsets fall back to
// the raw bytes, which are sanitized to valid UTF-8 afterwards.
var wordDecoder = mime.WordDecoder{
	CharsetReader: func(charset string, input io.Reader) (io.Reader, error) {
		if enc := encodingByName(charset); enc != nil {
			return transform.NewReader(input, enc.NewDecoder()), nil
		}
		return input, nil
	},
}

// DecodeHeader decodes a header value containing RFC 2047 encoded words into
// plain UTF-8. Each encoded segment is decoded with its declared charset
// (UTF-8 by default); undecodable segments degrade to sanitized raw text
// rather than failing the header.
func DecodeHeader(value string) string {
	if value == "" {
		return ""
	}
	decoded, err := wordDecoder.DecodeHeader(value)
	if err != nil {
		return sanitizeUTF8(value)
	}
	return sanitizeUTF8(decoded)
}
