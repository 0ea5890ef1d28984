package canon

import (
	"bytes"
	"fmt"
	"math"
	"reflect"
	"strconv"

	"golang.org/x/text/unicode/norm"
)

// Encode produces the canonical byte encoding of v. Equal values encode to
// identical bytes regardless of mapping insertion order. The output is valid
// JSON, so it doubles as the persisted representation of payload fields.
//
// Cyclic sequences or mappings are rejected, not truncated: the encoder
// tracks container identity along the current path and fails fast on a
// revisit.
func Encode(v Value) ([]byte, error) {
	enc := &encoder{visited: make(map[uintptr]struct{})}
	if err := enc.encode(v, ""); err != nil {
		return nil, err
	}
	return enc.buf.Bytes(), nil
}

type encoder struct {
	buf     bytes.Buffer
	visited map[uintptr]struct{}
}

func (e *encoder) encode(v Value, path string) error {
	switch val := v.(type) {
	case nil:
		return encodingErrorf(path, "nil Value; use canon.Null")
	case Null:
		e.buf.WriteString("null")
		return nil
	case Bool:
		if val {
			e.buf.WriteString("true")
		} else {
			e.buf.WriteString("false")
		}
		return nil
	case Int:
		b := strconv.AppendInt(e.buf.AvailableBuffer(), int64(val), 10)
		e.buf.Write(b)
		return nil
	case Float:
		f := float64(val)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return encodingErrorf(path, "non-finite float %v", f)
		}
		// Shortest representation that round-trips, locale independent.
		b := strconv.AppendFloat(e.buf.AvailableBuffer(), f, 'g', -1, 64)
		e.buf.Write(b)
		return nil
	case String:
		e.encodeString(string(val))
		return nil
	case Sequence:
		return e.encodeSequence(val, path)
	case Mapping:
		return e.encodeMapping(val, path)
	default:
		return encodingErrorf(path, "unsupported value type %T", v)
	}
}

func (e *encoder) encodeSequence(seq Sequence, path string) error {
	if len(seq) > 0 {
		ptr := reflect.ValueOf(seq).Pointer()
		if _, ok := e.visited[ptr]; ok {
			return encodingErrorf(path, "cyclic sequence")
		}
		e.visited[ptr] = struct{}{}
		defer delete(e.visited, ptr)
	}

	e.buf.WriteByte('[')
	for i, elem := range seq {
		if i > 0 {
			e.buf.WriteByte(',')
		}
		if err := e.encode(elem, fmt.Sprintf("%s[%d]", path, i)); err != nil {
			return err
		}
	}
	e.buf.WriteByte(']')
	return nil
}

func (e *encoder) encodeMapping(m Mapping, path string) error {
	if len(m) > 0 {
		ptr := reflect.ValueOf(m).Pointer()
		if _, ok := e.visited[ptr]; ok {
			return encodingErrorf(path, "cyclic mapping")
		}
		e.visited[ptr] = struct{}{}
		defer delete(e.visited, ptr)
	}

	e.buf.WriteByte('{')
	for i, k := range m.SortedKeys() {
		if i > 0 {
			e.buf.WriteByte(',')
		}
		e.encodeString(k)
		e.buf.WriteByte(':')
		childPath := k
		if path != "" {
			childPath = path + "." + k
		}
		if err := e.encode(m[k], childPath); err != nil {
			return err
		}
	}
	e.buf.WriteByte('}')
	return nil
}

const hexDigits = "0123456789abcdef"

// encodeString writes s as a JSON string with the minimal normative escape
// set: quote, backslash, and control characters below U+0020. Everything
// else, including non-ASCII, is emitted as raw UTF-8. Input is NFC
// normalized first so visually identical strings share one encoding.
func (e *encoder) encodeString(s string) {
	s = norm.NFC.String(s)

	e.buf.WriteByte('"')
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '"':
			e.buf.WriteString(`\"`)
		case c == '\\':
			e.buf.WriteString(`\\`)
		case c == '\n':
			e.buf.WriteString(`\n`)
		case c == '\r':
			e.buf.WriteString(`\r`)
		case c == '\t':
			e.buf.WriteString(`\t`)
		case c < 0x20:
			e.buf.WriteString(`\u00`)
			e.buf.WriteByte(hexDigits[c>>4])
			e.buf.WriteByte(hexDigits[c&0xf])
		default:
			e.buf.WriteByte(c)
		}
	}
	e.buf.WriteByte('"')
}
