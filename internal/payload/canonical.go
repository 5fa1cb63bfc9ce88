package payload

import (
	"bytes"
	"unicode/utf8"
)

const hexDigits = "0123456789abcdef"

// Canonical returns the single deterministic JSON encoding of v: object
// members in insertion order, no insignificant whitespace, and strings
// escaping only quotes, backslashes and control characters. Non-ASCII text
// and slashes are written verbatim. Signatures are computed over these bytes,
// so the output must never depend on anything but v.
func Canonical(v Value) []byte {
	var buf bytes.Buffer
	writeValue(&buf, v)
	return buf.Bytes()
}

func writeValue(buf *bytes.Buffer, v Value) {
	switch v.kind {
	case KindBool:
		if v.b {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case KindNumber:
		buf.WriteString(v.s)
	case KindString:
		writeString(buf, v.s)
	case KindObject:
		buf.WriteByte('{')
		if v.obj != nil {
			for i, m := range v.obj.members {
				if i > 0 {
					buf.WriteByte(',')
				}
				writeString(buf, m.Key)
				buf.WriteByte(':')
				writeValue(buf, m.Value)
			}
		}
		buf.WriteByte('}')
	case KindList:
		buf.WriteByte('[')
		for i, item := range v.list {
			if i > 0 {
				buf.WriteByte(',')
			}
			writeValue(buf, item)
		}
		buf.WriteByte(']')
	default:
		buf.WriteString("null")
	}
}

func writeString(buf *bytes.Buffer, s string) {
	buf.WriteByte('"')
	for i := 0; i < len(s); {
		c := s[i]
		if c < utf8.RuneSelf {
			switch c {
			case '"', '\\':
				buf.WriteByte('\\')
				buf.WriteByte(c)
			case '\n':
				buf.WriteString(`\n`)
			case '\r':
				buf.WriteString(`\r`)
			case '\t':
				buf.WriteString(`\t`)
			case '\b':
				buf.WriteString(`\b`)
			case '\f':
				buf.WriteString(`\f`)
			default:
				if c < 0x20 {
					buf.WriteString(`\u00`)
					buf.WriteByte(hexDigits[c>>4])
					buf.WriteByte(hexDigits[c&0xF])
				} else {
					buf.WriteByte(c)
				}
			}
			i++
			continue
		}

		r, size := utf8.DecodeRuneInString(s[i:])
		if r == utf8.RuneError && size == 1 {
			buf.WriteString("\uFFFD")
			i++
			continue
		}
		buf.WriteString(s[i : i+size])
		i += size
	}
	buf.WriteByte('"')
}
