package models

import "fmt"

// Value is the RESP protocol value exchanged between the wire codec, the
// handlers and the storage layer. Bulk strings are binary safe; seeds and
// encoded blobs travel through Bulk.
type Value struct {
	Type   string
	Str    string
	Bulk   string
	Num    int
	Double float64
	Bool   bool
	Array  []Value
}

func (v Value) String() string {
	switch v.Type {
	case "string":
		return fmt.Sprintf("String: %s", v.Str)
	case "error":
		return fmt.Sprintf("Error: %s", v.Str)
	case "integer":
		return fmt.Sprintf("Integer: %d", v.Num)
	case "bulk":
		return fmt.Sprintf("Bulk: %s", v.Bulk)
	case "null":
		return "Null"
	case "array":
		return fmt.Sprintf("Array: %v", v.Array)
	case "bool":
		return fmt.Sprintf("Boolean: %t", v.Bool)
	case "double":
		return fmt.Sprintf("Double: %f", v.Double)
	default:
		return fmt.Sprintf("Unknown Type: %s", v.Type)
	}
}

func (v Value) IsCommand(cmd string) bool {
	return v.Type == "array" && len(v.Array) > 0 && v.Array[0].Bulk == cmd
}

// NewCommand builds an array value from raw command tokens.
func NewCommand(tokens ...string) Value {
	arr := make([]Value, len(tokens))
	for i, t := range tokens {
		arr[i] = Value{Type: "bulk", Bulk: t}
	}
	return Value{Type: "array", Array: arr}
}
