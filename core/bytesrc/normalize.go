// Package bytesrc collapses the many shapes a renderer uses for binary
// payloads into one canonical []byte.
//
// Accepted shapes, checked in this order:
//  1. nil, including a typed nil pointer
//  2. a wrapper: a Carrier, or a map with a "bytes" key (recursed into)
//  3. []byte, returned as-is
//  4. a raw buffer: anything with Bytes() []byte, or a fixed-size [N]byte
//  5. an integer array ([]int, []float64 from JSON, []any of numbers, ...)
//  6. a string: base64-decoded when it looks like base64, else UTF-8
//  7. any other slice or array of numbers, via reflection
//
// Anything else fails with an *UnsupportedSourceError.
package bytesrc

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"unicode"
)

// ErrUnsupportedSource is matched by every *UnsupportedSourceError.
var ErrUnsupportedSource = errors.New("unsupported byte source")

// UnsupportedSourceError names the runtime type that could not be coerced.
type UnsupportedSourceError struct {
	Type string
}

func (e *UnsupportedSourceError) Error() string {
	return fmt.Sprintf("%v: cannot convert %s to bytes", ErrUnsupportedSource, e.Type)
}

func (e *UnsupportedSourceError) Unwrap() error {
	return ErrUnsupportedSource
}

// Carrier is implemented by artifact wrappers that hold a payload.
type Carrier interface {
	ArtifactBytes() any
}

// base64Pattern is checked after all whitespace has been removed.
var base64Pattern = regexp.MustCompile(`^[A-Za-z0-9+/]*={0,2}$`)

// Normalize converts v into a byte slice. A []byte input is returned
// unchanged, which makes Normalize idempotent.
func Normalize(v any) ([]byte, error) {
	// A typed nil pointer is null too.
	if rv := reflect.ValueOf(v); rv.Kind() == reflect.Pointer && rv.IsNil() {
		return []byte{}, nil
	}
	switch src := v.(type) {
	case nil:
		return []byte{}, nil
	case Carrier:
		return Normalize(src.ArtifactBytes())
	case map[string]any:
		if inner, ok := src["bytes"]; ok {
			return Normalize(inner)
		}
	case []byte:
		return src, nil
	case interface{ Bytes() []byte }:
		return src.Bytes(), nil
	case []int:
		return fromNumbers(src), nil
	case []int64:
		return fromNumbers(src), nil
	case []uint16:
		return fromNumbers(src), nil
	case []float64:
		return fromNumbers(src), nil
	case []any:
		return fromAny(src)
	case string:
		return fromString(src), nil
	}
	return reflectNumbers(v)
}

type number interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint16 | ~uint32 | ~uint64 |
		~float32 | ~float64
}

// toByte keeps the low eight bits, the way a typed byte array stores
// out-of-range values. Fractions are truncated first.
func toByte[T number](n T) byte {
	return byte(int64(n))
}

func fromNumbers[T number](s []T) []byte {
	out := make([]byte, len(s))
	for i, n := range s {
		out[i] = toByte(n)
	}
	return out
}

func fromAny(s []any) ([]byte, error) {
	out := make([]byte, len(s))
	for i, el := range s {
		switch n := el.(type) {
		case float64:
			out[i] = toByte(n)
		case int:
			out[i] = toByte(n)
		case json.Number:
			f, err := n.Float64()
			if err != nil {
				return nil, &UnsupportedSourceError{Type: fmt.Sprintf("[]interface {} with element %q", n)}
			}
			out[i] = toByte(f)
		default:
			rv := reflect.ValueOf(el)
			if !rv.IsValid() || !isNumberKind(rv.Kind()) {
				return nil, &UnsupportedSourceError{Type: fmt.Sprintf("[]interface {} with element of type %T", el)}
			}
			out[i] = reflectByte(rv)
		}
	}
	return out, nil
}

// fromString guesses whether s is base64. Short words like "test" satisfy
// the pattern and decode as base64; callers must not rely on either reading
// for ambiguous input.
func fromString(s string) []byte {
	compact := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
	if len(compact)%4 == 0 && base64Pattern.MatchString(compact) {
		if decoded, err := base64.StdEncoding.DecodeString(compact); err == nil {
			return decoded
		}
	}
	return []byte(s)
}

func reflectNumbers(v any) ([]byte, error) {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer && !rv.IsNil() {
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		out := make([]byte, rv.Len())
		for i := range out {
			el := rv.Index(i)
			if el.Kind() == reflect.Interface {
				el = el.Elem()
			}
			if !el.IsValid() || !isNumberKind(el.Kind()) {
				return nil, &UnsupportedSourceError{Type: fmt.Sprintf("%T", v)}
			}
			out[i] = reflectByte(el)
		}
		return out, nil
	}
	return nil, &UnsupportedSourceError{Type: fmt.Sprintf("%T", v)}
}

func isNumberKind(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

func reflectByte(rv reflect.Value) byte {
	switch rv.Kind() {
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return byte(rv.Uint())
	case reflect.Float32, reflect.Float64:
		return toByte(rv.Float())
	}
	return byte(rv.Int())
}
