package schema

import (
	"math/big"

	"github.com/zclconf/go-cty/cty"
)

// attr returns the named attribute of an object value. A JSON null counts
// as absent.
func attr(obj cty.Value, name string) (cty.Value, bool) {
	if obj.IsNull() || !obj.Type().IsObjectType() || !obj.Type().HasAttribute(name) {
		return cty.NilVal, false
	}
	v := obj.GetAttr(name)
	if v.IsNull() {
		return cty.NilVal, false
	}
	return v, true
}

// attrNames lists the keys of an object value in sorted order.
func attrNames(obj cty.Value) []string {
	names := make([]string, 0, len(obj.Type().AttributeTypes()))
	for it := obj.ElementIterator(); it.Next(); {
		k, _ := it.Element()
		names = append(names, k.AsString())
	}
	return names
}

func isObject(v cty.Value) bool {
	return !v.IsNull() && v.Type().IsObjectType()
}

func isArray(v cty.Value) bool {
	ty := v.Type()
	return !v.IsNull() && (ty.IsTupleType() || ty.IsListType())
}

// elements returns the items of an array value in order.
func elements(v cty.Value) []cty.Value {
	out := make([]cty.Value, 0, v.LengthInt())
	for it := v.ElementIterator(); it.Next(); {
		_, e := it.Element()
		out = append(out, e)
	}
	return out
}

func isString(v cty.Value) bool { return v.Type() == cty.String }

func isBool(v cty.Value) bool { return v.Type() == cty.Bool }

func isNumber(v cty.Value) bool { return v.Type() == cty.Number }

// isInteger reports whether v is a whole number. JSON does not distinguish
// 2 from 2.0, so neither does this.
func isInteger(v cty.Value) bool {
	return isNumber(v) && v.AsBigFloat().IsInt()
}

func asInt(v cty.Value) int64 {
	i, _ := v.AsBigFloat().Int64()
	return i
}

func asFloat(v cty.Value) float64 {
	f, _ := v.AsBigFloat().Float64()
	return f
}

// fitsInt64 reports whether an integer value is representable as int64.
func fitsInt64(v cty.Value) bool {
	_, acc := v.AsBigFloat().Int64()
	return acc == big.Exact
}

// isVec3 reports whether v is a 3-element array of numbers.
func isVec3(v cty.Value) bool {
	if !isArray(v) || v.LengthInt() != 3 {
		return false
	}
	for _, e := range elements(v) {
		if e.IsNull() || !isNumber(e) {
			return false
		}
	}
	return true
}

// isCellPair reports whether v is a [col, row] integer pair.
func isCellPair(v cty.Value) bool {
	if !isArray(v) || v.LengthInt() != 2 {
		return false
	}
	for _, e := range elements(v) {
		if e.IsNull() || !isInteger(e) {
			return false
		}
	}
	return true
}

// typeName names a value's JSON type for error messages.
func typeName(v cty.Value) string {
	if v.IsNull() {
		return "null"
	}
	ty := v.Type()
	switch {
	case ty == cty.String:
		return "string"
	case ty == cty.Number:
		return "number"
	case ty == cty.Bool:
		return "boolean"
	case ty.IsObjectType() || ty.IsMapType():
		return "object"
	case ty.IsTupleType() || ty.IsListType():
		return "array"
	default:
		return ty.FriendlyName()
	}
}
