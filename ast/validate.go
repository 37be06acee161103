package ast

import "fmt"

// Validate checks a predicate tree against a collection schema and returns
// a new tree whose property references carry resolved type tags. The input
// tree is never modified. Validation fails fast on the first violation:
//
//   - every property reference must exist in the schema (UnknownPropertyError)
//   - literals must be coercible to the property's declared type (TypeMismatchError)
//   - spatial, temporal, and pattern predicates require geometry, date, and
//     string properties respectively (PredicateTypeError)
//   - IN lists and BETWEEN pairs must be non-empty and homogeneous
//
// Only a validated tree may be handed to an evaluator or translator.
func Validate(f *Filter, schema Schema) (*Filter, error) {
	if f == nil || f.Root == nil {
		return &Filter{validated: true}, nil
	}
	root, err := validateNode(f.Root, schema)
	if err != nil {
		return nil, err
	}
	return &Filter{Root: root, validated: true}, nil
}

func validateNode(n Node, schema Schema) (Node, error) {
	switch node := n.(type) {
	case *Comparison:
		prop, err := resolve(node.Property, schema)
		if err != nil {
			return nil, err
		}
		if prop.Type == TypeGeometry {
			return nil, &PredicateTypeError{Predicate: string(node.Op), Property: prop.Name, Need: TypeString}
		}
		if prop.Type == TypeBoolean && node.Op != OpEqual && node.Op != OpNotEqual {
			return nil, &PredicateTypeError{Predicate: string(node.Op), Property: prop.Name, Need: TypeNumber}
		}
		lit, ok := node.Literal.ConvertTo(prop.Type)
		if !ok {
			return nil, &TypeMismatchError{Property: prop.Name, Expected: prop.Type, Got: node.Literal.Type}
		}
		return &Comparison{Op: node.Op, Property: prop, Literal: lit}, nil

	case *Combination:
		if len(node.Children) < 2 {
			return nil, fmt.Errorf("%s requires at least 2 operands, got %d", node.Op, len(node.Children))
		}
		children := make([]Node, len(node.Children))
		for i, child := range node.Children {
			validated, err := validateNode(child, schema)
			if err != nil {
				return nil, err
			}
			children[i] = validated
		}
		return &Combination{Op: node.Op, Children: children}, nil

	case *Not:
		child, err := validateNode(node.Child, schema)
		if err != nil {
			return nil, err
		}
		return &Not{Child: child}, nil

	case *Between:
		prop, err := resolve(node.Property, schema)
		if err != nil {
			return nil, err
		}
		switch prop.Type {
		case TypeNumber, TypeDate, TypeString:
		default:
			return nil, &PredicateTypeError{Predicate: "BETWEEN", Property: prop.Name, Need: TypeNumber}
		}
		lower, ok := node.Lower.ConvertTo(prop.Type)
		if !ok {
			return nil, &TypeMismatchError{Property: prop.Name, Expected: prop.Type, Got: node.Lower.Type}
		}
		upper, ok := node.Upper.ConvertTo(prop.Type)
		if !ok {
			return nil, &TypeMismatchError{Property: prop.Name, Expected: prop.Type, Got: node.Upper.Type}
		}
		return &Between{Property: prop, Lower: lower, Upper: upper}, nil

	case *Like:
		prop, err := resolve(node.Property, schema)
		if err != nil {
			return nil, err
		}
		if prop.Type != TypeString {
			return nil, &PredicateTypeError{Predicate: likeName(node), Property: prop.Name, Need: TypeString}
		}
		out := *node
		out.Property = prop
		return &out, nil

	case *In:
		prop, err := resolve(node.Property, schema)
		if err != nil {
			return nil, err
		}
		if len(node.Values) == 0 {
			return nil, fmt.Errorf("IN list for property %q is empty", prop.Name)
		}
		values := make([]Value, len(node.Values))
		for i, v := range node.Values {
			converted, ok := v.ConvertTo(prop.Type)
			if !ok {
				return nil, &TypeMismatchError{Property: prop.Name, Expected: prop.Type, Got: v.Type}
			}
			values[i] = converted
		}
		return &In{Property: prop, Values: values, Negate: node.Negate}, nil

	case *Null:
		prop, err := resolve(node.Property, schema)
		if err != nil {
			return nil, err
		}
		return &Null{Property: prop, Negate: node.Negate}, nil

	case *BBox:
		prop, err := resolve(node.Property, schema)
		if err != nil {
			return nil, err
		}
		if prop.Type != TypeGeometry {
			return nil, &PredicateTypeError{Predicate: "BBOX", Property: prop.Name, Need: TypeGeometry}
		}
		if _, err := BoundFromExtent(node.Extent); err != nil {
			return nil, err
		}
		return &BBox{Property: prop, Extent: node.Extent}, nil

	case *Spatial:
		prop, err := resolve(node.Property, schema)
		if err != nil {
			return nil, err
		}
		if prop.Type != TypeGeometry {
			return nil, &PredicateTypeError{Predicate: string(node.Op), Property: prop.Name, Need: TypeGeometry}
		}
		if node.Geometry == nil {
			return nil, fmt.Errorf("%s on property %q has no geometry literal", node.Op, prop.Name)
		}
		switch node.Op {
		case OpSpatialDWithin, OpSpatialBeyond:
			if _, err := DistanceInMeters(node.Distance, node.Units); err != nil {
				return nil, err
			}
		case OpSpatialRelate:
			if err := validatePattern(node.Pattern); err != nil {
				return nil, err
			}
		}
		out := *node
		out.Property = prop
		return &out, nil

	case *Temporal:
		prop, err := resolve(node.Property, schema)
		if err != nil {
			return nil, err
		}
		if prop.Type != TypeDate {
			return nil, &PredicateTypeError{Predicate: string(node.Op), Property: prop.Name, Need: TypeDate}
		}
		out := *node
		out.Property = prop
		return &out, nil

	default:
		return nil, &TranslationError{Op: "validate", Reason: fmt.Sprintf("unexpected node type %T", n)}
	}
}

func resolve(p PropertyRef, schema Schema) (PropertyRef, error) {
	ft, ok := schema[p.Name]
	if !ok {
		return PropertyRef{}, &UnknownPropertyError{Property: p.Name}
	}
	return PropertyRef{Name: p.Name, Type: ft}, nil
}

func likeName(n *Like) string {
	name := "LIKE"
	if n.CaseInsensitive {
		name = "ILIKE"
	}
	if n.Negate {
		name = "NOT " + name
	}
	return name
}

// validatePattern checks a DE-9IM intersection matrix pattern.
func validatePattern(pattern string) error {
	if len(pattern) != 9 {
		return fmt.Errorf("DE-9IM pattern must have 9 characters, got %d", len(pattern))
	}
	for _, c := range pattern {
		switch c {
		case 'T', 'F', '0', '1', '2', '*':
		default:
			return fmt.Errorf("invalid DE-9IM pattern character %q", c)
		}
	}
	return nil
}
