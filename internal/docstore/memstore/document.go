package memstore

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/Ayuu1305/squad-quest-sub001/internal/docstore"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func toDocument(id string, doc any) (bson.M, error) {
	raw, err := bson.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("memstore: encode document %s: %w", id, err)
	}
	m, err := decode(raw)
	if err != nil {
		return nil, err
	}
	m["_id"] = id
	return m, nil
}

func decode(raw bson.Raw) (bson.M, error) {
	var m bson.M
	if err := bson.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("memstore: decode document: %w", err)
	}
	if m == nil {
		m = bson.M{}
	}
	return normalize(m).(bson.M), nil
}

// normalize rewrites nested documents as bson.M and arrays as primitive.A so
// dotted paths can be walked without caring how the driver decoded them.
func normalize(v any) any {
	switch x := v.(type) {
	case bson.M:
		out := make(bson.M, len(x))
		for k, e := range x {
			out[k] = normalize(e)
		}
		return out
	case map[string]any:
		return normalize(bson.M(x))
	case primitive.D:
		out := make(bson.M, len(x))
		for _, e := range x {
			out[e.Key] = normalize(e.Value)
		}
		return out
	case primitive.A:
		out := make(primitive.A, len(x))
		for i, e := range x {
			out[i] = normalize(e)
		}
		return out
	case []any:
		return normalize(primitive.A(x))
	default:
		return v
	}
}

func copyDocument(m bson.M) bson.M {
	return normalize(m).(bson.M)
}

// canonical converts a Go value to the form it takes after a store round trip.
func canonical(v any) (any, error) {
	raw, err := bson.Marshal(bson.M{"v": v})
	if err != nil {
		return nil, fmt.Errorf("memstore: encode value: %w", err)
	}
	m, err := decode(raw)
	if err != nil {
		return nil, err
	}
	return m["v"], nil
}

func applyOps(doc bson.M, ops []docstore.Op, now time.Time) error {
	for _, op := range ops {
		parts := strings.Split(op.Field, ".")
		parent := doc
		for _, p := range parts[:len(parts)-1] {
			next, ok := parent[p]
			if !ok || next == nil {
				child := bson.M{}
				parent[p] = child
				parent = child
				continue
			}
			child, ok := next.(bson.M)
			if !ok {
				return fmt.Errorf("memstore: %q in %q is not a document", p, op.Field)
			}
			parent = child
		}
		leaf := parts[len(parts)-1]

		switch op.Kind {
		case docstore.OpSet:
			v, err := canonical(op.Value)
			if err != nil {
				return err
			}
			parent[leaf] = v
		case docstore.OpServerTimestamp:
			parent[leaf] = primitive.NewDateTimeFromTime(now)
		case docstore.OpInc:
			v, err := addNumbers(parent[leaf], op.Value)
			if err != nil {
				return fmt.Errorf("memstore: increment %q: %w", op.Field, err)
			}
			parent[leaf] = v
		case docstore.OpArrayUnion, docstore.OpArrayRemove:
			arr, err := toArray(parent[leaf])
			if err != nil {
				return fmt.Errorf("memstore: %s %q: %w", op.Kind, op.Field, err)
			}
			for _, raw := range op.Values {
				v, err := canonical(raw)
				if err != nil {
					return err
				}
				if op.Kind == docstore.OpArrayUnion {
					if !contains(arr, v) {
						arr = append(arr, v)
					}
					continue
				}
				kept := arr[:0]
				for _, e := range arr {
					if !reflect.DeepEqual(e, v) {
						kept = append(kept, e)
					}
				}
				arr = kept
			}
			if arr == nil {
				arr = primitive.A{}
			}
			parent[leaf] = arr
		default:
			return fmt.Errorf("memstore: unknown op %s", op.Kind)
		}
	}
	return nil
}

func addNumbers(current, delta any) (any, error) {
	var (
		ci      int64
		cf      float64
		isFloat bool
	)
	switch v := current.(type) {
	case nil:
	case int32:
		ci = int64(v)
	case int64:
		ci = v
	case int:
		ci = int64(v)
	case float64:
		cf, isFloat = v, true
	default:
		return nil, fmt.Errorf("current value %T is not numeric", current)
	}

	switch d := delta.(type) {
	case int:
		ci += int64(d)
		cf += float64(d)
	case int32:
		ci += int64(d)
		cf += float64(d)
	case int64:
		ci += d
		cf += float64(d)
	case float64:
		if !isFloat {
			cf = float64(ci)
		}
		return cf + d, nil
	default:
		return nil, fmt.Errorf("delta %T is not numeric", delta)
	}
	if isFloat {
		return cf, nil
	}
	return ci, nil
}

func toArray(v any) (primitive.A, error) {
	switch a := v.(type) {
	case nil:
		return nil, nil
	case primitive.A:
		return a, nil
	default:
		return nil, fmt.Errorf("value %T is not an array", v)
	}
}

func contains(arr primitive.A, v any) bool {
	for _, e := range arr {
		if reflect.DeepEqual(e, v) {
			return true
		}
	}
	return false
}

func fieldValue(raw bson.Raw, path string) (bson.RawValue, bool) {
	rv, err := raw.LookupErr(strings.Split(path, ".")...)
	if err != nil {
		return bson.RawValue{}, false
	}
	return rv, true
}

func matches(raw bson.Raw, filters []docstore.Filter) bool {
	for _, f := range filters {
		rv, ok := fieldValue(raw, f.Field)
		if !ok {
			return false
		}
		a, ok := scalarFromRaw(rv)
		if !ok {
			return false
		}
		b, ok := scalarFromGo(f.Value)
		if !ok {
			return false
		}
		c, ok := compareScalars(a, b)
		if !ok {
			return false
		}
		switch f.Op {
		case docstore.OpEq:
			ok = c == 0
		case docstore.OpLt:
			ok = c < 0
		case docstore.OpLte:
			ok = c <= 0
		case docstore.OpGt:
			ok = c > 0
		case docstore.OpGte:
			ok = c >= 0
		}
		if !ok {
			return false
		}
	}
	return true
}

func compare(a, b bson.RawValue) (int, bool) {
	sa, ok := scalarFromRaw(a)
	if !ok {
		return 0, false
	}
	sb, ok := scalarFromRaw(b)
	if !ok {
		return 0, false
	}
	return compareScalars(sa, sb)
}

type scalarKind int

const (
	kindNumber scalarKind = iota
	kindString
	kindTime
	kindBool
)

type scalar struct {
	kind scalarKind
	num  float64
	str  string
	ts   time.Time
	b    bool
}

func scalarFromRaw(rv bson.RawValue) (scalar, bool) {
	switch rv.Type {
	case bsontype.Double:
		return scalar{kind: kindNumber, num: rv.Double()}, true
	case bsontype.Int32:
		return scalar{kind: kindNumber, num: float64(rv.Int32())}, true
	case bsontype.Int64:
		return scalar{kind: kindNumber, num: float64(rv.Int64())}, true
	case bsontype.String:
		return scalar{kind: kindString, str: rv.StringValue()}, true
	case bsontype.DateTime:
		return scalar{kind: kindTime, ts: time.UnixMilli(rv.DateTime())}, true
	case bsontype.Boolean:
		return scalar{kind: kindBool, b: rv.Boolean()}, true
	default:
		return scalar{}, false
	}
}

func scalarFromGo(v any) (scalar, bool) {
	switch x := v.(type) {
	case time.Time:
		return scalar{kind: kindTime, ts: x}, true
	case primitive.DateTime:
		return scalar{kind: kindTime, ts: x.Time()}, true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return scalar{kind: kindNumber, num: float64(rv.Int())}, true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return scalar{kind: kindNumber, num: float64(rv.Uint())}, true
	case reflect.Float32, reflect.Float64:
		return scalar{kind: kindNumber, num: rv.Float()}, true
	case reflect.String:
		return scalar{kind: kindString, str: rv.String()}, true
	case reflect.Bool:
		return scalar{kind: kindBool, b: rv.Bool()}, true
	default:
		return scalar{}, false
	}
}

func compareScalars(a, b scalar) (int, bool) {
	if a.kind != b.kind {
		return 0, false
	}
	switch a.kind {
	case kindNumber:
		switch {
		case a.num < b.num:
			return -1, true
		case a.num > b.num:
			return 1, true
		}
		return 0, true
	case kindString:
		return strings.Compare(a.str, b.str), true
	case kindTime:
		return a.ts.Compare(b.ts), true
	default:
		switch {
		case a.b == b.b:
			return 0, true
		case !a.b:
			return -1, true
		}
		return 1, true
	}
}
