package zeng

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"
)

// Description compiler backend. Source text is a line-oriented format
// description, one field per line:
//
//	name: type [attribute...]
//
// with types u8, u16, u32, u64, bytes, struct(N), string, and the single
// attribute "delta" (numeric types only). Blank lines and #-comments are
// skipped. The compiled form is an opaque versioned blob; decodeDescription
// reduces it to the transform profile the graph executes.
var descMagic = []byte("ZDSC")

const descVersion = 1

const (
	descFlagDeltaNumeric = 1 << 0
)

type fieldSpec struct {
	kind  uint8
	width uint64
	flags uint8
}

func compileDescription(source string) ([]byte, error) {
	var (
		fields []fieldSpec
		flags  byte
	)
	seen := map[string]int{}
	for i, line := range strings.Split(source, "\n") {
		lineNo := i + 1
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		name, rest, ok := strings.Cut(line, ":")
		if !ok {
			return nil, fmt.Errorf("line %d: expected \"name: type\", got %q", lineNo, line)
		}
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, fmt.Errorf("line %d: missing field name", lineNo)
		}
		if prev, dup := seen[name]; dup {
			return nil, fmt.Errorf("line %d: field %q already declared on line %d", lineNo, name, prev)
		}
		seen[name] = lineNo

		parts := strings.Fields(rest)
		if len(parts) == 0 {
			return nil, fmt.Errorf("line %d: missing type for field %q", lineNo, name)
		}
		field, err := parseFieldType(parts[0])
		if err != nil {
			return nil, fmt.Errorf("line %d: %v", lineNo, err)
		}
		for _, attr := range parts[1:] {
			switch attr {
			case "delta":
				if !isNumericField(field) {
					return nil, fmt.Errorf("line %d: attribute \"delta\" requires a numeric type, field %q is not", lineNo, name)
				}
				field.flags |= descFlagDeltaNumeric
				flags |= descFlagDeltaNumeric
			default:
				return nil, fmt.Errorf("line %d: unknown attribute %q", lineNo, attr)
			}
		}
		fields = append(fields, field)
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("description declares no fields")
	}

	out := append([]byte(nil), descMagic...)
	out = append(out, descVersion, flags)
	out = binary.AppendUvarint(out, uint64(len(fields)))
	for _, f := range fields {
		out = append(out, f.kind, f.flags)
		out = binary.AppendUvarint(out, f.width)
	}
	return out, nil
}

func parseFieldType(s string) (fieldSpec, error) {
	switch s {
	case "u8":
		return fieldSpec{kind: fieldNumeric, width: 1}, nil
	case "u16":
		return fieldSpec{kind: fieldNumeric, width: 2}, nil
	case "u32":
		return fieldSpec{kind: fieldNumeric, width: 4}, nil
	case "u64":
		return fieldSpec{kind: fieldNumeric, width: 8}, nil
	case "bytes":
		return fieldSpec{kind: fieldSerial, width: 1}, nil
	case "string":
		return fieldSpec{kind: fieldString}, nil
	}
	if inner, ok := strings.CutPrefix(s, "struct("); ok {
		inner, ok = strings.CutSuffix(inner, ")")
		if ok {
			n, err := strconv.ParseUint(inner, 10, 32)
			if err == nil && n > 0 {
				return fieldSpec{kind: fieldStruct, width: n}, nil
			}
		}
		return fieldSpec{}, fmt.Errorf("struct type needs a positive record width, got %q", s)
	}
	return fieldSpec{}, fmt.Errorf("unknown field type %q", s)
}

const (
	fieldSerial uint8 = iota
	fieldStruct
	fieldNumeric
	fieldString
)

func isNumericField(f fieldSpec) bool {
	return f.kind == fieldNumeric
}

func decodeDescription(description []byte) (profile, error) {
	if len(description) < len(descMagic)+2 {
		return profile{}, fmt.Errorf("compiled description too short (%d bytes)", len(description))
	}
	if !bytes.Equal(description[:len(descMagic)], descMagic) {
		return profile{}, fmt.Errorf("bad compiled description magic")
	}
	if v := description[len(descMagic)]; v != descVersion {
		return profile{}, fmt.Errorf("unsupported compiled description version %d", v)
	}
	flags := description[len(descMagic)+1]
	return profile{deltaNumeric: flags&descFlagDeltaNumeric != 0}, nil
}
