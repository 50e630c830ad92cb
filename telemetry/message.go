package telemetry

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/buger/jsonparser"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

var (
	ErrMalformed = errors.New("malformed telemetry message")
	ErrNotObject = errors.New("telemetry message is not a JSON object")
)

// ParseMessage decodes one telemetry message into display pairs.
// The payload must be a JSON object; an empty object yields no pairs.
func ParseMessage(data []byte) ([]Pair, error) {
	if !json.Valid(data) {
		return nil, ErrMalformed
	}
	data = replaceLoneSurrogates(data)

	_, dataType, _, err := jsonparser.Get(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if dataType != jsonparser.Object {
		return nil, fmt.Errorf("%w: got %s", ErrNotObject, dataType)
	}

	om, err := parseObject(data)
	if err != nil {
		return nil, err
	}

	pairs := make([]Pair, 0, om.Len())
	for p := om.Oldest(); p != nil; p = p.Next() {
		pairs = append(pairs, Pair{Label: p.Key, Value: p.Value})
	}
	return pairs, nil
}

// ParseValue decodes any single JSON value.
func ParseValue(data []byte) (Value, error) {
	if !json.Valid(data) {
		return Value{}, ErrMalformed
	}
	data = replaceLoneSurrogates(data)

	raw, dataType, _, err := jsonparser.Get(data)
	if err != nil {
		return Value{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return convert(raw, dataType)
}

func parseObject(data []byte) (*Object, error) {
	om := orderedmap.New[string, Value]()
	err := jsonparser.ObjectEach(data, func(key, raw []byte, dataType jsonparser.ValueType, _ int) error {
		v, err := convert(raw, dataType)
		if err != nil {
			return err
		}
		// Set keeps the position of an existing key and replaces its value.
		om.Set(string(key), v)
		return nil
	})
	if err != nil {
		return nil, malformed(err)
	}
	return om, nil
}

func parseArray(data []byte) ([]Value, error) {
	items := []Value{}
	var convErr error
	_, err := jsonparser.ArrayEach(data, func(raw []byte, dataType jsonparser.ValueType, _ int, err error) {
		if convErr != nil {
			return
		}
		if err != nil {
			convErr = err
			return
		}
		v, err := convert(raw, dataType)
		if err != nil {
			convErr = err
			return
		}
		items = append(items, v)
	})
	if err != nil {
		return nil, malformed(err)
	}
	if convErr != nil {
		return nil, malformed(convErr)
	}
	return items, nil
}

func convert(raw []byte, dataType jsonparser.ValueType) (Value, error) {
	switch dataType {
	case jsonparser.Null:
		return Null(), nil
	case jsonparser.Boolean:
		b, err := jsonparser.ParseBoolean(raw)
		if err != nil {
			return Value{}, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		return Bool(b), nil
	case jsonparser.Number:
		v, err := Number(string(raw))
		if err != nil {
			return Value{}, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		return v, nil
	case jsonparser.String:
		s, err := jsonparser.ParseString(raw)
		if err != nil {
			return Value{}, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		return String(s), nil
	case jsonparser.Object:
		om, err := parseObject(raw)
		if err != nil {
			return Value{}, err
		}
		return NewObject(om), nil
	case jsonparser.Array:
		items, err := parseArray(raw)
		if err != nil {
			return Value{}, err
		}
		return NewArray(items), nil
	default:
		return Value{}, fmt.Errorf("%w: unexpected %s", ErrMalformed, dataType)
	}
}

// malformed wraps err in ErrMalformed unless it already is one.
func malformed(err error) error {
	if errors.Is(err, ErrMalformed) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrMalformed, err)
}

// replaceLoneSurrogates rewrites \u escapes of unpaired UTF-16 surrogates
// as \ufffd, which is how encoding/json decodes them. The replacement has
// the same length, so offsets do not move. data must be valid JSON.
func replaceLoneSurrogates(data []byte) []byte {
	var out []byte
	inString := false
	for i := 0; i < len(data); i++ {
		c := data[i]
		if !inString {
			inString = c == '"'
			continue
		}
		switch c {
		case '"':
			inString = false
		case '\\':
			if data[i+1] != 'u' {
				i++
				continue
			}
			r := hexRune(data[i+2 : i+6])
			if utf16.IsSurrogate(r) {
				if r < 0xDC00 && i+12 <= len(data) && data[i+6] == '\\' && data[i+7] == 'u' {
					if low := hexRune(data[i+8 : i+12]); low >= 0xDC00 && low <= 0xDFFF {
						i += 11
						continue
					}
				}
				if out == nil {
					out = append([]byte(nil), data...)
				}
				copy(out[i:i+6], `\ufffd`)
			}
			i += 5
		}
	}
	if out == nil {
		return data
	}
	return out
}

func hexRune(b []byte) rune {
	n, err := strconv.ParseUint(string(b), 16, 32)
	if err != nil {
		return utf8.RuneError
	}
	return rune(n)
}
