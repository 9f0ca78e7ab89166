package docstore

import (
	"fmt"
	"strings"
)

type OpKind int

const (
	OpSet OpKind = iota
	OpInc
	OpArrayUnion
	OpArrayRemove
	OpServerTimestamp
)

func (k OpKind) String() string {
	switch k {
	case OpSet:
		return "set"
	case OpInc:
		return "inc"
	case OpArrayUnion:
		return "arrayUnion"
	case OpArrayRemove:
		return "arrayRemove"
	case OpServerTimestamp:
		return "serverTimestamp"
	default:
		return fmt.Sprintf("op(%d)", int(k))
	}
}

// Op is a single field mutation. Field may be a dotted path into nested maps.
type Op struct {
	Kind   OpKind
	Field  string
	Value  any
	Values []any
}

func SetField(field string, value any) Op {
	return Op{Kind: OpSet, Field: field, Value: value}
}

// Inc atomically adds delta (an int, int64 or float64) to a numeric field.
func Inc(field string, delta any) Op {
	return Op{Kind: OpInc, Field: field, Value: delta}
}

func ArrayUnion(field string, values ...any) Op {
	return Op{Kind: OpArrayUnion, Field: field, Values: values}
}

func ArrayRemove(field string, values ...any) Op {
	return Op{Kind: OpArrayRemove, Field: field, Values: values}
}

// ServerTimestamp sets field to the store's clock at commit time.
func ServerTimestamp(field string) Op {
	return Op{Kind: OpServerTimestamp, Field: field}
}

// Strings converts a string slice for use with ArrayUnion and ArrayRemove.
func Strings(values ...string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}

// ValidateOps rejects empty field paths and malformed increments.
func ValidateOps(ops []Op) error {
	for _, op := range ops {
		if op.Field == "" || strings.HasPrefix(op.Field, ".") || strings.HasSuffix(op.Field, ".") || strings.Contains(op.Field, "..") {
			return fmt.Errorf("docstore: invalid field path %q", op.Field)
		}
		if op.Field == "_id" {
			return fmt.Errorf("docstore: %s on _id is not allowed", op.Kind)
		}
		if op.Kind == OpInc {
			switch op.Value.(type) {
			case int, int32, int64, float64:
			default:
				return fmt.Errorf("docstore: increment on %q needs a numeric delta, got %T", op.Field, op.Value)
			}
		}
	}
	return nil
}
