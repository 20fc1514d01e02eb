package evaluator

import (
	"encoding/json"
)

// ValueToJSON marshals a Value to JSON bytes. Integers, booleans, strings
// and null map to their JSON counterparts; functions and builtins are
// rendered as their display string.
func ValueToJSON(v Value) ([]byte, error) {
	return json.Marshal(valueToRaw(v))
}

func valueToRaw(v Value) any {
	if v == nil {
		return nil
	}

	switch val := Unwrap(v).(type) {
	case Null:
		return nil
	case Boolean:
		return val.Value
	case Integer:
		return val.Value
	case String:
		return val.Value
	default:
		return val.Inspect()
	}
}

// ValueToJSONString is a convenience that returns a string.
func ValueToJSONString(v Value) string {
	b, err := ValueToJSON(v)
	if err != nil {
		return "null"
	}
	return string(b)
}
