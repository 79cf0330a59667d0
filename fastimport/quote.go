package fastimport

import (
	"bytes"
	"fmt"
)

// unsafePathByte reports whether b forces a path to be C-quoted on
// output: NUL, LF, `"`, ` `, `\`, or anything quotePath would otherwise
// have to C-escape (controls and non-ASCII bytes).
func unsafePathByte(b byte) bool {
	return b == 0 || b == '\n' || b == '"' || b == ' ' || b == '\\' || b < 0x20 || b >= 0x7f
}

// needsQuoting reports whether path must be emitted C-escaped and
// double-quoted rather than verbatim. Every byte is scanned, not just
// the leading one, so an embedded quote or space is caught too.
func needsQuoting(path []byte) bool {
	for _, b := range path {
		if unsafePathByte(b) {
			return true
		}
	}
	return false
}

// quotePath C-escapes and double-quotes path, symmetric with
// dequotePath. Used by the serializer whenever needsQuoting(path).
func quotePath(path []byte) []byte {
	var buf bytes.Buffer
	buf.WriteByte('"')
	for _, b := range path {
		switch b {
		case '\a':
			buf.WriteString(`\a`)
		case '\b':
			buf.WriteString(`\b`)
		case '\t':
			buf.WriteString(`\t`)
		case '\n':
			buf.WriteString(`\n`)
		case '\v':
			buf.WriteString(`\v`)
		case '\f':
			buf.WriteString(`\f`)
		case '\r':
			buf.WriteString(`\r`)
		case '\\':
			buf.WriteString(`\\`)
		case '"':
			buf.WriteString(`\"`)
		default:
			if b < 0x20 || b >= 0x7f {
				fmt.Fprintf(&buf, `\%03o`, b)
			} else {
				buf.WriteByte(b)
			}
		}
	}
	buf.WriteByte('"')
	return buf.Bytes()
}

// dequotePath reverses the fast-export quoting rules: C-style escapes
// for \a \b \t \n \v \f \r \\ \" and octal \NNN. path must begin with a
// `"` (callers check that before calling).
func dequotePath(path []byte) ([]byte, error) {
	if len(path) < 2 || path[0] != '"' || path[len(path)-1] != '"' {
		return nil, fmt.Errorf("fastimport: malformed quoted path %q", path)
	}
	inner := path[1 : len(path)-1]
	var buf bytes.Buffer
	for i := 0; i < len(inner); i++ {
		b := inner[i]
		if b != '\\' {
			buf.WriteByte(b)
			continue
		}
		i++
		if i >= len(inner) {
			return nil, fmt.Errorf("fastimport: truncated escape in quoted path %q", path)
		}
		switch inner[i] {
		case 'a':
			buf.WriteByte('\a')
		case 'b':
			buf.WriteByte('\b')
		case 't':
			buf.WriteByte('\t')
		case 'n':
			buf.WriteByte('\n')
		case 'v':
			buf.WriteByte('\v')
		case 'f':
			buf.WriteByte('\f')
		case 'r':
			buf.WriteByte('\r')
		case '\\':
			buf.WriteByte('\\')
		case '"':
			buf.WriteByte('"')
		case '0', '1', '2', '3', '4', '5', '6', '7':
			if i+2 >= len(inner) {
				return nil, fmt.Errorf("fastimport: truncated octal escape in quoted path %q", path)
			}
			var v int
			for k := 0; k < 3; k++ {
				c := inner[i+k]
				if c < '0' || c > '7' {
					return nil, fmt.Errorf("fastimport: bad octal escape in quoted path %q", path)
				}
				v = v*8 + int(c-'0')
			}
			buf.WriteByte(byte(v))
			i += 2
		default:
			return nil, fmt.Errorf("fastimport: unknown escape '\\%c' in quoted path %q", inner[i], path)
		}
	}
	return buf.Bytes(), nil
}
