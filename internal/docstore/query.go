package docstore

import "fmt"

type FilterOp string

const (
	OpEq  FilterOp = "=="
	OpLt  FilterOp = "<"
	OpLte FilterOp = "<="
	OpGt  FilterOp = ">"
	OpGte FilterOp = ">="
)

type Filter struct {
	Field string
	Op    FilterOp
	Value any
}

// Query selects documents of one collection. All filters must match.
type Query struct {
	Collection string
	Filters    []Filter
	OrderBy    string
	Descending bool
	Limit      int
}

func Where(field string, op FilterOp, value any) Filter {
	return Filter{Field: field, Op: op, Value: value}
}

func (q Query) Validate() error {
	if q.Collection == "" {
		return fmt.Errorf("docstore: query without collection")
	}
	for _, f := range q.Filters {
		switch f.Op {
		case OpEq, OpLt, OpLte, OpGt, OpGte:
		default:
			return fmt.Errorf("docstore: unsupported filter operator %q", f.Op)
		}
	}
	if q.Limit < 0 {
		return fmt.Errorf("docstore: negative limit")
	}
	return nil
}
