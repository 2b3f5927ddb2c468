package extract

import (
	"bytes"
	"strings"
	"unicode/utf8"
)

// extractPlain returns content as a string with a leading UTF-8 BOM removed.
// Invalid UTF-8 sequences are replaced with the replacement character.
func extractPlain(content []byte) (string, error) {
	content = bytes.TrimPrefix(content, []byte("\ufeff"))
	if !utf8.Valid(content) {
		return strings.ToValidUTF8(string(content), "\ufffd"), nil
	}
	return string(content), nil
}
