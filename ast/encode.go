package ast

import "strings"

// String renders the filter in CQL text form. The output re-parses to a
// structurally equal tree.
func (f *Filter) String() string {
	if f == nil || f.Root == nil {
		return ""
	}
	return f.Root.String()
}

func (n *Comparison) String() string {
	return propText(n.Property) + " " + string(n.Op) + " " + n.Literal.text()
}

func (n *Combination) String() string {
	parts := make([]string, len(n.Children))
	for i, child := range n.Children {
		parts[i] = childText(child, n.Op)
	}
	return strings.Join(parts, " "+string(n.Op)+" ")
}

// childText parenthesizes a child combination of a different operator, so
// OR under AND survives the round trip.
func childText(n Node, parent LogicOp) string {
	if c, ok := n.(*Combination); ok && c.Op != parent {
		return "(" + c.String() + ")"
	}
	return n.String()
}

func (n *Not) String() string {
	return "NOT (" + n.Child.String() + ")"
}

func (n *Between) String() string {
	return propText(n.Property) + " BETWEEN " + n.Lower.text() + " AND " + n.Upper.text()
}

func (n *Like) String() string {
	op := "LIKE"
	if n.CaseInsensitive {
		op = "ILIKE"
	}
	if n.Negate {
		op = "NOT " + op
	}
	return propText(n.Property) + " " + op + " " + quoteString(n.Pattern)
}

func (n *In) String() string {
	values := make([]string, len(n.Values))
	for i, v := range n.Values {
		values[i] = v.text()
	}
	op := " IN ("
	if n.Negate {
		op = " NOT IN ("
	}
	return propText(n.Property) + op + strings.Join(values, ", ") + ")"
}

func (n *Null) String() string {
	if n.Negate {
		return propText(n.Property) + " IS NOT NULL"
	}
	return propText(n.Property) + " IS NULL"
}

func (n *BBox) String() string {
	parts := make([]string, 0, len(n.Extent)+1)
	parts = append(parts, propText(n.Property))
	for _, ord := range n.Extent {
		parts = append(parts, formatNumber(ord))
	}
	return "BBOX(" + strings.Join(parts, ", ") + ")"
}

func (n *Spatial) String() string {
	args := []string{propText(n.Property), FormatWKT(n.Geometry)}
	switch n.Op {
	case OpSpatialDWithin, OpSpatialBeyond:
		args = append(args, formatNumber(n.Distance), n.Units)
	case OpSpatialRelate:
		args = append(args, quoteString(n.Pattern))
	}
	return string(n.Op) + "(" + strings.Join(args, ", ") + ")"
}

func (n *Temporal) String() string {
	bound := FormatTimestamp(n.Start)
	if n.Interval {
		bound += "/" + FormatTimestamp(n.End)
	}
	return propText(n.Property) + " " + string(n.Op) + " " + bound
}

// text renders a literal value in CQL text form.
func (v Value) text() string {
	switch v.Type {
	case TypeBoolean:
		if b, _ := v.Data.(bool); b {
			return "TRUE"
		}
		return "FALSE"
	case TypeNumber:
		f, _ := v.AsNumber()
		return formatNumber(f)
	case TypeString:
		s, _ := v.AsString()
		return quoteString(s)
	case TypeDate:
		t, _ := v.AsTime()
		return FormatTimestamp(t)
	case TypeGeometry:
		g, _ := v.AsGeometry()
		return FormatWKT(g)
	default:
		return ""
	}
}

// quoteString returns a CQL string literal with doubled single quotes.
func quoteString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// propText renders a property reference, double-quoting names that are not
// plain identifiers.
func propText(p PropertyRef) string {
	for i := 0; i < len(p.Name); i++ {
		c := p.Name[i]
		letter := c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
		digit := c >= '0' && c <= '9'
		if !letter && !(i > 0 && digit) {
			return `"` + strings.ReplaceAll(p.Name, `"`, `""`) + `"`
		}
	}
	if p.Name == "" {
		return `""`
	}
	return p.Name
}
