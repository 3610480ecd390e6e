package schema

import (
	"slices"

	"github.com/specialistvlad/scenegrid/internal/spec"
	"github.com/specialistvlad/scenegrid/internal/validation"
	"github.com/zclconf/go-cty/cty"
)

func (v *validator) validateObjects(p cty.Path, objects cty.Value) {
	if !isArray(objects) {
		v.errorf(p, validation.CodeType, "objects must be array, got: %s", typeName(objects))
		return
	}
	seen := map[string]int{}
	for i, o := range elements(objects) {
		op := p.Index(cty.NumberIntVal(int64(i)))
		if !isObject(o) {
			v.errorf(op, validation.CodeType, "object must be object, got: %s", typeName(o))
			continue
		}
		v.checkName(op, o, "id", "object", seen, i)

		var otype spec.ObjectType
		t, ok := attr(o, "type")
		switch {
		case !ok || !isString(t):
			got := "null"
			if ok {
				got = typeName(t)
			}
			v.errorf(op.GetAttr("type"), validation.CodeType, "object.type must be string, got: %s", got)
		case !slices.Contains(spec.ObjectTypes, spec.ObjectType(t.AsString())):
			v.errorf(op.GetAttr("type"), validation.CodeEnum, "object.type must be one of %s", joinEnum(spec.ObjectTypes))
		default:
			otype = spec.ObjectType(t.AsString())
		}

		for _, k := range []string{"position", "rotation_euler", "scale"} {
			if vec, ok := attr(o, k); ok && !isVec3(vec) {
				v.errorf(op.GetAttr(k), validation.CodeType, "%s must be a 3-vector of numbers", k)
			}
		}

		if gc, ok := attr(o, "grid_cell"); ok {
			v.validateGridCell(op.GetAttr("grid_cell"), gc)
		}

		v.checkReference(op, o, "material", v.materials)
		v.checkReference(op, o, "collection", v.collections)

		if props, ok := attr(o, "properties"); ok {
			pp := op.GetAttr("properties")
			if !isObject(props) {
				v.errorf(pp, validation.CodeType, "properties must be object, got: %s", typeName(props))
			} else if otype != "" {
				v.validateProperties(pp, otype, props)
			}
		}

		if tc, ok := attr(o, "traversable_cells"); ok {
			v.validateCellPairs(op.GetAttr("traversable_cells"), tc)
		}
		if wa, ok := attr(o, "walkable_area"); ok {
			v.validateWalkableArea(op.GetAttr("walkable_area"), wa)
		}
	}
}

func (v *validator) validateGridCell(p cty.Path, gc cty.Value) {
	if !isObject(gc) {
		v.errorf(p, validation.CodeType, "grid_cell must be object, got: %s", typeName(gc))
		return
	}
	for _, k := range []string{"col", "row"} {
		val, ok := attr(gc, k)
		switch {
		case !ok:
			v.errorf(p.GetAttr(k), validation.CodeType, "grid_cell.%s must be integer, got: null", k)
		case !isInteger(val) || !fitsInt64(val):
			v.errorf(p.GetAttr(k), validation.CodeType, "grid_cell.%s must be integer, got: %s", k, typeName(val))
		}
	}
}

// checkReference resolves an optional name reference against the set of
// declared names.
func (v *validator) checkReference(p cty.Path, obj cty.Value, key string, declared map[string]struct{}) {
	ref, ok := attr(obj, key)
	if !ok {
		return
	}
	fp := p.GetAttr(key)
	if !isString(ref) {
		v.errorf(fp, validation.CodeType, "%s must be string, got: %s", key, typeName(ref))
		return
	}
	if _, found := declared[ref.AsString()]; !found {
		v.errorf(fp, validation.CodeReference, "%s %q is not declared in $.%ss", key, ref.AsString(), key)
	}
}

// validateProperties checks the bag against the variant of the object type.
// Keys outside the variant are warnings; wrongly typed legal keys are errors.
func (v *validator) validateProperties(p cty.Path, otype spec.ObjectType, props cty.Value) {
	legal := spec.NewProperties(otype).Keys()
	for _, k := range attrNames(props) {
		val, ok := attr(props, k)
		if !ok {
			continue
		}
		if !slices.Contains(legal, k) {
			v.warnf(p.GetAttr(k), validation.CodeUnknownProperty, "property %q is not used by %s objects", k, otype)
			continue
		}
		fp := p.GetAttr(k)
		switch k {
		case "blocked":
			if !isBool(val) {
				v.errorf(fp, validation.CodeType, "blocked must be boolean, got: %s", typeName(val))
			}
		case "width_cells", "height_cells", "length_cells":
			switch {
			case !isInteger(val) || !fitsInt64(val):
				v.errorf(fp, validation.CodeType, "%s must be integer, got: %s", k, typeName(val))
			case asInt(val) < 1:
				v.errorf(fp, validation.CodeMinimum, "%s must be >= 1", k)
			case asInt(val) > spec.MaxGridDimension:
				v.errorf(fp, validation.CodeRange, "%s must be <= %d", k, spec.MaxGridDimension)
			}
		case "width_m":
			switch {
			case !isNumber(val):
				v.errorf(fp, validation.CodeType, "width_m must be number, got: %s", typeName(val))
			case asFloat(val) <= 0:
				v.errorf(fp, validation.CodeMinimum, "width_m must be > 0")
			}
		case "direction", "variant":
			if !isString(val) {
				v.errorf(fp, validation.CodeType, "%s must be string, got: %s", k, typeName(val))
			}
		}
	}
}

var boundsKeys = []string{"min_col", "max_col", "min_row", "max_row"}

func (v *validator) validateWalkableArea(p cty.Path, wa cty.Value) {
	if !isObject(wa) {
		v.errorf(p, validation.CodeType, "walkable_area must be object, got: %s", typeName(wa))
		return
	}
	if t, ok := attr(wa, "type"); !ok || !isString(t) || t.AsString() != "rectangle" {
		v.errorf(p.GetAttr("type"), validation.CodeEnum, "walkable_area.type must be 'rectangle'")
	}
	bounds, ok := attr(wa, "bounds")
	if !ok {
		v.errorf(p, validation.CodeRequired, "Missing required field: bounds")
		return
	}
	bp := p.GetAttr("bounds")
	if !isObject(bounds) {
		v.errorf(bp, validation.CodeType, "bounds must be object, got: %s", typeName(bounds))
		return
	}
	vals := map[string]int64{}
	for _, k := range boundsKeys {
		val, ok := attr(bounds, k)
		if !ok || !isInteger(val) || !fitsInt64(val) {
			v.errorf(bp.GetAttr(k), validation.CodeType, "%s must be integer", k)
			continue
		}
		vals[k] = asInt(val)
	}
	if len(vals) != len(boundsKeys) {
		return
	}
	if vals["min_col"] > vals["max_col"] || vals["min_row"] > vals["max_row"] {
		v.errorf(bp, validation.CodeRange, "bounds must satisfy min_col <= max_col and min_row <= max_row")
	}
}
