// Package schema is the structural validator for scene specs. It walks the
// document's cty tree and reports every type, range, enum, uniqueness and
// reference violation it finds, each addressed by a field path. It never
// stops at the first problem.
package schema

import (
	"fmt"
	"slices"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/specialistvlad/scenegrid/internal/spec"
	"github.com/specialistvlad/scenegrid/internal/validation"
	"github.com/zclconf/go-cty/cty"
)

// Option configures a validation run.
type Option func(*options)

type options struct {
	expectVersion     string
	versionConstraint *semver.Constraints
}

// WithExpectVersion requires the spec version to match v exactly.
func WithExpectVersion(v string) Option {
	return func(o *options) { o.expectVersion = v }
}

// WithVersionConstraint requires the spec version to satisfy c, for
// example ">= 1.0.0, < 2.0.0".
func WithVersionConstraint(c *semver.Constraints) Option {
	return func(o *options) { o.versionConstraint = c }
}

// ParseVersionConstraint parses a semver constraint expression.
func ParseVersionConstraint(expr string) (*semver.Constraints, error) {
	c, err := semver.NewConstraint(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid version constraint %q: %w", expr, err)
	}
	return c, nil
}

var requiredKeys = []string{"version", "domain", "seed", "objects", "lighting", "camera"}

// Validate checks the document against the v1 contract. Malformed input is
// never an error return; it is reported in the Result.
func Validate(doc *spec.Document, opts ...Option) validation.Result {
	v := &validator{}
	for _, opt := range opts {
		opt(&v.opts)
	}
	if doc == nil {
		v.errorf(nil, validation.CodeType, "spec must be an object, got: null")
		return v.res
	}
	v.validateRoot(doc.Value)
	return v.res
}

// AssertValid validates the document and decodes it into the typed model,
// failing with a *validation.Error that lists every blocking issue.
func AssertValid(doc *spec.Document, opts ...Option) (*spec.SceneSpec, error) {
	res := Validate(doc, opts...)
	if err := res.Err(); err != nil {
		return nil, err
	}
	s, err := doc.Decode()
	if err != nil {
		return nil, &validation.Error{Issues: []validation.Issue{{
			Path:     "$",
			Message:  err.Error(),
			Code:     validation.CodeType,
			Severity: validation.SeverityError,
			Kind:     validation.KindStructural,
		}}}
	}
	return s, nil
}

type validator struct {
	opts options
	res  validation.Result

	materials   map[string]struct{}
	collections map[string]struct{}
}

func (v *validator) errorf(path cty.Path, code validation.Code, format string, args ...any) {
	v.res.Errorf(validation.KindStructural, validation.FormatPath(path), code, fmt.Sprintf(format, args...))
}

func (v *validator) warnf(path cty.Path, code validation.Code, format string, args ...any) {
	v.res.Warnf(validation.FormatPath(path), code, fmt.Sprintf(format, args...))
}

func (v *validator) validateRoot(root cty.Value) {
	if !isObject(root) {
		v.errorf(nil, validation.CodeType, "spec must be an object, got: %s", typeName(root))
		return
	}
	for _, k := range requiredKeys {
		if _, ok := attr(root, k); !ok {
			v.errorf(nil, validation.CodeRequired, "Missing required field: %s", k)
		}
	}

	v.validateVersion(root)

	var domain string
	if d, ok := attr(root, "domain"); ok {
		p := cty.GetAttrPath("domain")
		switch {
		case !isString(d):
			v.errorf(p, validation.CodeType, "domain must be string, got: %s", typeName(d))
		case !slices.Contains(spec.Domains, spec.Domain(d.AsString())):
			v.errorf(p, validation.CodeEnum, "domain must be one of %s", joinEnum(spec.Domains))
		default:
			domain = d.AsString()
		}
	}

	if u, ok := attr(root, "units"); ok {
		if !isString(u) || !slices.Contains(spec.Units, u.AsString()) {
			v.errorf(cty.GetAttrPath("units"), validation.CodeEnum, "units must be 'meters'")
		}
	}

	if s, ok := attr(root, "seed"); ok {
		p := cty.GetAttrPath("seed")
		switch {
		case !isInteger(s):
			v.errorf(p, validation.CodeType, "seed must be integer, got: %s", typeName(s))
		case s.AsBigFloat().Sign() < 0:
			v.errorf(p, validation.CodeMinimum, "seed must be >= 0")
		case !fitsInt64(s):
			v.errorf(p, validation.CodeRange, "seed must fit in 64 bits")
		}
	}

	if m, ok := attr(root, "metadata"); ok {
		v.validateMetadata(cty.GetAttrPath("metadata"), m)
	}

	if g, ok := attr(root, "grid"); ok {
		v.validateGrid(cty.GetAttrPath("grid"), g)
	} else if domain == string(spec.DomainProceduralDungeon) {
		v.errorf(cty.GetAttrPath("grid"), validation.CodeRequired, "grid is required for procedural_dungeon domain")
	} else if requiresTraversal(root) {
		v.errorf(cty.GetAttrPath("grid"), validation.CodeRequired,
			"grid is required when constraints.require_traversable_start_to_goal is true")
	}

	// Names must be known before object references are resolved.
	v.materials = map[string]struct{}{}
	if m, ok := attr(root, "materials"); ok {
		v.validateMaterials(cty.GetAttrPath("materials"), m)
	}
	v.collections = map[string]struct{}{}
	if c, ok := attr(root, "collections"); ok {
		v.validateCollections(cty.GetAttrPath("collections"), c)
	}

	if o, ok := attr(root, "objects"); ok {
		v.validateObjects(cty.GetAttrPath("objects"), o)
	}
	if l, ok := attr(root, "lighting"); ok {
		v.validateLighting(cty.GetAttrPath("lighting"), l)
	}
	if c, ok := attr(root, "camera"); ok {
		v.validateCamera(cty.GetAttrPath("camera"), c)
	}
	if c, ok := attr(root, "constraints"); ok {
		v.validateConstraints(cty.GetAttrPath("constraints"), c)
	}
	if tc, ok := attr(root, "traversable_cells"); ok {
		v.validateCellPairs(cty.GetAttrPath("traversable_cells"), tc)
	}
}

func (v *validator) validateVersion(root cty.Value) {
	ver, ok := attr(root, "version")
	if !ok {
		return
	}
	p := cty.GetAttrPath("version")
	if !isString(ver) {
		v.errorf(p, validation.CodeType, "version must be string, got: %s", typeName(ver))
		return
	}
	s := ver.AsString()
	if !spec.VersionPattern.MatchString(s) {
		v.errorf(p, validation.CodeFormat, "version must match N.N.N")
	}
	if v.opts.expectVersion != "" && s != v.opts.expectVersion {
		v.res.Errorf(validation.KindVersionMismatch, validation.FormatPath(p), validation.CodeMismatch,
			fmt.Sprintf("expected version %s, got %s", v.opts.expectVersion, s))
	}
	if v.opts.versionConstraint != nil {
		sv, err := semver.NewVersion(s)
		if err != nil || !v.opts.versionConstraint.Check(sv) {
			v.res.Errorf(validation.KindVersionMismatch, validation.FormatPath(p), validation.CodeMismatch,
				fmt.Sprintf("version %s does not satisfy %s", s, v.opts.versionConstraint.String()))
		}
	}
}

func (v *validator) validateMetadata(p cty.Path, meta cty.Value) {
	if !isObject(meta) {
		v.errorf(p, validation.CodeType, "metadata must be object, got: %s", typeName(meta))
		return
	}
	if qm, ok := attr(meta, "quality_mode"); ok {
		switch {
		case !isString(qm):
			v.errorf(p.GetAttr("quality_mode"), validation.CodeType, "quality_mode must be string, got: %s", typeName(qm))
		case !slices.Contains(spec.QualityModes, qm.AsString()):
			v.errorf(p.GetAttr("quality_mode"), validation.CodeEnum, "quality_mode must be one of %s", joinEnum(spec.QualityModes))
		}
	}
	for _, k := range []string{"hardware_profile", "notes"} {
		if s, ok := attr(meta, k); ok && !isString(s) {
			v.errorf(p.GetAttr(k), validation.CodeType, "%s must be string, got: %s", k, typeName(s))
		}
	}
	if ff, ok := attr(meta, "force_fail"); ok && !isBool(ff) {
		v.errorf(p.GetAttr("force_fail"), validation.CodeType, "force_fail must be boolean, got: %s", typeName(ff))
	}
}

func (v *validator) validateGrid(p cty.Path, grid cty.Value) {
	if !isObject(grid) {
		v.errorf(p, validation.CodeType, "grid must be object, got: %s", typeName(grid))
		return
	}
	cs, ok := attr(grid, "cell_size_m")
	if !ok {
		v.errorf(p, validation.CodeRequired, "Missing required field: cell_size_m")
	} else {
		v.checkNumberRange(p.GetAttr("cell_size_m"), "cell_size_m", cs, spec.MinCellSize, spec.MaxCellSize)
	}

	dims, ok := attr(grid, "dimensions")
	if !ok {
		v.errorf(p, validation.CodeRequired, "Missing required field: dimensions")
		return
	}
	dp := p.GetAttr("dimensions")
	if !isObject(dims) {
		v.errorf(dp, validation.CodeType, "dimensions must be object, got: %s", typeName(dims))
		return
	}
	cols, colsOK := v.checkIntRange(dp, dims, "cols", spec.MinGridDimension, spec.MaxGridDimension)
	rows, rowsOK := v.checkIntRange(dp, dims, "rows", spec.MinGridDimension, spec.MaxGridDimension)
	if colsOK && rowsOK && cols*rows < spec.RecommendedGridArea {
		v.warnf(dp, validation.CodeWarning, "grid area %d is below the recommended minimum of %d cells", cols*rows, spec.RecommendedGridArea)
	}
}

// checkIntRange validates a required integer attribute in [lo, hi] and
// returns it when valid.
func (v *validator) checkIntRange(p cty.Path, obj cty.Value, name string, lo, hi int64) (int64, bool) {
	val, ok := attr(obj, name)
	fp := p.GetAttr(name)
	switch {
	case !ok:
		v.errorf(fp, validation.CodeType, "%s must be integer, got: null", name)
		return 0, false
	case !isInteger(val):
		v.errorf(fp, validation.CodeType, "%s must be integer, got: %s", name, typeName(val))
		return 0, false
	}
	n := asInt(val)
	if !fitsInt64(val) || n < lo || n > hi {
		v.errorf(fp, validation.CodeRange, "%s must be in [%d, %d]", name, lo, hi)
		return 0, false
	}
	return n, true
}

func (v *validator) checkNumberRange(p cty.Path, name string, val cty.Value, lo, hi float64) bool {
	if !isNumber(val) {
		v.errorf(p, validation.CodeType, "%s must be number, got: %s", name, typeName(val))
		return false
	}
	f := asFloat(val)
	if f < lo || f > hi {
		v.errorf(p, validation.CodeRange, "%s must be in [%g, %g]", name, lo, hi)
		return false
	}
	return true
}

// checkColor validates an optional [r, g, b] triple in [0, 1].
func (v *validator) checkColor(p cty.Path, name string, val cty.Value) {
	if !isVec3(val) {
		v.errorf(p, validation.CodeType, "%s must be [r,g,b] numbers", name)
		return
	}
	for _, c := range elements(val) {
		if f := asFloat(c); f < 0 || f > 1 {
			v.errorf(p, validation.CodeRange, "%s components must be in [0,1]", name)
			return
		}
	}
}

// checkName validates a required, ASCII-safe identifier and records its
// first index in seen. Duplicates are reported at the later index.
func (v *validator) checkName(p cty.Path, obj cty.Value, key, label string, seen map[string]int, idx int) (string, bool) {
	fp := p.GetAttr(key)
	val, ok := attr(obj, key)
	if !ok || !isString(val) || strings.TrimSpace(val.AsString()) == "" {
		v.errorf(fp, validation.CodeRequired, "%s.%s must be non-empty string", label, key)
		return "", false
	}
	name := val.AsString()
	if !spec.ASCIISafePattern.MatchString(name) {
		v.errorf(fp, validation.CodeASCII, "%s.%s must be ASCII-safe [a-zA-Z0-9_\\-]", label, key)
		return "", false
	}
	if first, dup := seen[name]; dup {
		parent := p[:len(p)-1]
		v.errorf(fp, validation.CodeUnique, "duplicate %s %s %q at %s and %s", label, key, name,
			validation.FormatPath(parent.Index(cty.NumberIntVal(int64(first)))),
			validation.FormatPath(parent.Index(cty.NumberIntVal(int64(idx)))))
		return name, false
	}
	seen[name] = idx
	return name, true
}

func (v *validator) validateMaterials(p cty.Path, materials cty.Value) {
	if !isArray(materials) {
		v.errorf(p, validation.CodeType, "materials must be array, got: %s", typeName(materials))
		return
	}
	seen := map[string]int{}
	for i, m := range elements(materials) {
		mp := p.Index(cty.NumberIntVal(int64(i)))
		if !isObject(m) {
			v.errorf(mp, validation.CodeType, "material must be object, got: %s", typeName(m))
			continue
		}
		if name, _ := v.checkName(mp, m, "name", "material", seen, i); name != "" {
			v.materials[name] = struct{}{}
		}
		pbr, ok := attr(m, "pbr")
		if !ok {
			continue
		}
		pp := mp.GetAttr("pbr")
		if !isObject(pbr) {
			v.errorf(pp, validation.CodeType, "pbr must be object, got: %s", typeName(pbr))
			continue
		}
		if bc, ok := attr(pbr, "base_color"); ok {
			v.checkColor(pp.GetAttr("base_color"), "base_color", bc)
		}
		for _, k := range []string{"metallic", "roughness"} {
			if val, ok := attr(pbr, k); ok {
				v.checkNumberRange(pp.GetAttr(k), k, val, 0, 1)
			}
		}
		if nt, ok := attr(pbr, "normal_tex"); ok && !isString(nt) {
			v.errorf(pp.GetAttr("normal_tex"), validation.CodeType, "normal_tex must be string (path/identifier)")
		}
	}
}

func (v *validator) validateCollections(p cty.Path, collections cty.Value) {
	if !isArray(collections) {
		v.errorf(p, validation.CodeType, "collections must be array, got: %s", typeName(collections))
		return
	}
	seen := map[string]int{}
	for i, c := range elements(collections) {
		cp := p.Index(cty.NumberIntVal(int64(i)))
		if !isObject(c) {
			v.errorf(cp, validation.CodeType, "collection must be object, got: %s", typeName(c))
			continue
		}
		if name, _ := v.checkName(cp, c, "name", "collection", seen, i); name != "" {
			v.collections[name] = struct{}{}
		}
		if purpose, ok := attr(c, "purpose"); ok {
			switch {
			case !isString(purpose):
				v.errorf(cp.GetAttr("purpose"), validation.CodeType, "purpose must be string, got: %s", typeName(purpose))
			case !slices.Contains(spec.CollectionPurposes, purpose.AsString()):
				v.errorf(cp.GetAttr("purpose"), validation.CodeEnum, "purpose must be one of %s", joinEnum(spec.CollectionPurposes))
			}
		}
	}
}

func (v *validator) validateLighting(p cty.Path, lighting cty.Value) {
	if !isArray(lighting) {
		v.errorf(p, validation.CodeType, "lighting must be array, got: %s", typeName(lighting))
		return
	}
	lights := elements(lighting)
	switch len(lights) {
	case 0:
		v.errorf(p, validation.CodeMinItems, "lighting must contain at least one light")
		return
	case 1:
		v.warnf(p, validation.CodeHint, "single light scene; consider adding a fill light")
	}
	for i, l := range lights {
		lp := p.Index(cty.NumberIntVal(int64(i)))
		if !isObject(l) {
			v.errorf(lp, validation.CodeType, "light must be object, got: %s", typeName(l))
			continue
		}
		if t, ok := attr(l, "type"); !ok || !isString(t) || !slices.Contains(spec.LightTypes, t.AsString()) {
			v.errorf(lp.GetAttr("type"), validation.CodeEnum, "light.type must be one of %s", joinEnum(spec.LightTypes))
		}
		if pos, ok := attr(l, "position"); !ok {
			v.errorf(lp, validation.CodeRequired, "Missing required field: position")
		} else if !isVec3(pos) {
			v.errorf(lp.GetAttr("position"), validation.CodeType, "position must be [x,y,z] numbers")
		}
		if rot, ok := attr(l, "rotation_euler"); ok && !isVec3(rot) {
			v.errorf(lp.GetAttr("rotation_euler"), validation.CodeType, "rotation_euler must be [rx,ry,rz] numbers")
		}
		if in, ok := attr(l, "intensity"); !ok {
			v.errorf(lp, validation.CodeRequired, "Missing required field: intensity")
		} else {
			v.checkNumberRange(lp.GetAttr("intensity"), "intensity", in, 0, spec.MaxLightIntensity)
		}
		if c, ok := attr(l, "color_rgb"); ok {
			v.checkColor(lp.GetAttr("color_rgb"), "color_rgb", c)
		}
	}
}

func (v *validator) validateCamera(p cty.Path, cam cty.Value) {
	if !isObject(cam) {
		v.errorf(p, validation.CodeType, "camera must be object, got: %s", typeName(cam))
		return
	}
	for _, k := range []string{"position", "rotation_euler"} {
		val, ok := attr(cam, k)
		if !ok {
			v.errorf(p, validation.CodeRequired, "Missing required field: %s", k)
			continue
		}
		if !isVec3(val) {
			v.errorf(p.GetAttr(k), validation.CodeType, "%s must be a 3-vector of numbers", k)
		}
	}
	if fov, ok := attr(cam, "fov_deg"); ok {
		fp := p.GetAttr("fov_deg")
		if v.checkNumberRange(fp, "fov_deg", fov, spec.MinFOV, spec.MaxFOV) && asFloat(fov) > spec.WideFOVThreshold {
			v.warnf(fp, validation.CodeHint, "fov_deg above %g may look unrealistic", spec.WideFOVThreshold)
		}
	}
}

func (v *validator) validateConstraints(p cty.Path, cons cty.Value) {
	if !isObject(cons) {
		v.errorf(p, validation.CodeType, "constraints must be object, got: %s", typeName(cons))
		return
	}
	v.checkMinInt(p, cons, "min_path_length_cells", spec.MinPathLengthFloor)
	v.checkMinInt(p, cons, "max_polycount", spec.MinPolycountFloor)
	if r, ok := attr(cons, "require_traversable_start_to_goal"); ok && !isBool(r) {
		v.errorf(p.GetAttr("require_traversable_start_to_goal"), validation.CodeType,
			"require_traversable_start_to_goal must be boolean, got: %s", typeName(r))
	}
}

// requiresTraversal reports whether the spec asks for a start-to-goal path,
// which can only be checked on a grid.
func requiresTraversal(root cty.Value) bool {
	cons, ok := attr(root, "constraints")
	if !ok || !isObject(cons) {
		return false
	}
	r, ok := attr(cons, "require_traversable_start_to_goal")
	return ok && isBool(r) && r.True()
}

// checkMinInt validates an optional integer attribute >= lo.
func (v *validator) checkMinInt(p cty.Path, obj cty.Value, name string, lo int64) {
	val, ok := attr(obj, name)
	if !ok {
		return
	}
	fp := p.GetAttr(name)
	switch {
	case !isInteger(val):
		v.errorf(fp, validation.CodeType, "%s must be integer, got: %s", name, typeName(val))
	case val.AsBigFloat().Sign() < 0 || asInt(val) < lo:
		v.errorf(fp, validation.CodeMinimum, "%s must be >= %d", name, lo)
	}
}

func (v *validator) validateCellPairs(p cty.Path, cells cty.Value) {
	if !isArray(cells) {
		v.errorf(p, validation.CodeType, "traversable_cells must be array, got: %s", typeName(cells))
		return
	}
	for i, c := range elements(cells) {
		if !isCellPair(c) {
			v.errorf(p.Index(cty.NumberIntVal(int64(i))), validation.CodeType, "cell must be [col,row] integers")
		}
	}
}

func joinEnum[T ~string](values []T) string {
	parts := make([]string, len(values))
	for i, s := range values {
		parts[i] = "'" + string(s) + "'"
	}
	slices.Sort(parts)
	return "[" + strings.Join(parts, ", ") + "]"
}
