package docfile

import (
	"bytes"
	"strings"
	"unicode"
	"unicode/utf8"

	textenc "golang.org/x/text/encoding/unicode"
	"golang.org/x/text/unicode/norm"
)

var (
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
)

// decodePlainText turns raw text bytes into a UTF-8 string, honoring UTF-16
// byte-order marks. Financial exports are frequently UTF-16.
func decodePlainText(raw []byte) (string, error) {
	switch {
	case bytes.HasPrefix(raw, bomUTF16LE), bytes.HasPrefix(raw, bomUTF16BE):
		decoder := textenc.UTF16(textenc.LittleEndian, textenc.UseBOM).NewDecoder()
		decoded, err := decoder.Bytes(raw)
		if err != nil {
			return "", err
		}
		return string(decoded), nil
	case bytes.HasPrefix(raw, bomUTF8):
		return string(raw[len(bomUTF8):]), nil
	default:
		return string(raw), nil
	}
}

// NormalizeText canonicalizes extracted text: NFC form so currency symbols
// and accented figures compare consistently, control characters stripped,
// whitespace runs collapsed. The second return reports whether any byte had
// to be replaced (undecodable input).
func NormalizeText(text string) (string, bool) {
	lossy := false
	if !utf8.ValidString(text) {
		lossy = true
		text = strings.ToValidUTF8(text, string(utf8.RuneError))
	}

	text = norm.NFC.String(text)

	var sb strings.Builder
	sb.Grow(len(text))
	lastSpace := false
	lastNewline := 0
	for _, r := range text {
		switch {
		case r == '\n':
			if lastNewline < 2 {
				sb.WriteRune('\n')
				lastNewline++
			}
			lastSpace = true
		case r == '\r':
			// Normalized to \n by the following \n or dropped.
		case unicode.IsSpace(r):
			if !lastSpace {
				sb.WriteRune(' ')
			}
			lastSpace = true
		case unicode.IsControl(r), r == utf8.RuneError && lossy:
			// Control characters and replacement runes carry no content.
		default:
			sb.WriteRune(r)
			lastSpace = false
			lastNewline = 0
		}
	}
	return strings.TrimSpace(sb.String()), lossy
}
