package ast

import (
	"fmt"
	"time"

	"github.com/klauspost/compress/s2"
	"github.com/paulmach/orb/encoding/wkb"
	"github.com/vmihailenco/msgpack/v5"
)

// The binary codec serializes predicate trees for plan caches and
// cross-process handoff: msgpack framing with s2-compressed payload,
// geometries as WKB.

// wireNode is the msgpack representation of a Node.
type wireNode struct {
	Kind     Kind        `msgpack:"k"`
	Op       string      `msgpack:"o,omitempty"`
	Property string      `msgpack:"p,omitempty"`
	PropType FieldType   `msgpack:"pt,omitempty"`
	Negate   bool        `msgpack:"n,omitempty"`
	NoCase   bool        `msgpack:"nc,omitempty"`
	Pattern  string      `msgpack:"pat,omitempty"`
	Values   []wireValue `msgpack:"v,omitempty"`
	Extent   []float64   `msgpack:"e,omitempty"`
	Geometry []byte      `msgpack:"g,omitempty"`
	Distance float64     `msgpack:"d,omitempty"`
	Units    string      `msgpack:"u,omitempty"`
	Start    time.Time   `msgpack:"ts,omitempty"`
	End      time.Time   `msgpack:"te,omitempty"`
	Interval bool        `msgpack:"i,omitempty"`
	Children []*wireNode `msgpack:"c,omitempty"`
}

// wireValue is the msgpack representation of a literal Value.
type wireValue struct {
	Type FieldType `msgpack:"t"`
	Bool bool      `msgpack:"b,omitempty"`
	Num  float64   `msgpack:"n,omitempty"`
	Str  string    `msgpack:"s,omitempty"`
	Time time.Time `msgpack:"ts,omitempty"`
	Geom []byte    `msgpack:"g,omitempty"`
}

type wireFilter struct {
	Root      *wireNode `msgpack:"r"`
	Validated bool      `msgpack:"v"`
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (f *Filter) MarshalBinary() ([]byte, error) {
	wf := wireFilter{Validated: f.Validated()}
	if f != nil && f.Root != nil {
		root, err := toWire(f.Root)
		if err != nil {
			return nil, err
		}
		wf.Root = root
	}
	payload, err := msgpack.Marshal(wf)
	if err != nil {
		return nil, fmt.Errorf("encoding filter: %w", err)
	}
	return s2.Encode(nil, payload), nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (f *Filter) UnmarshalBinary(data []byte) error {
	payload, err := s2.Decode(nil, data)
	if err != nil {
		return fmt.Errorf("decompressing filter: %w", err)
	}
	var wf wireFilter
	if err := msgpack.Unmarshal(payload, &wf); err != nil {
		return fmt.Errorf("decoding filter: %w", err)
	}
	f.Root = nil
	f.validated = wf.Validated
	if wf.Root != nil {
		root, err := fromWire(wf.Root)
		if err != nil {
			return err
		}
		f.Root = root
	}
	return nil
}

func toWire(n Node) (*wireNode, error) {
	switch node := n.(type) {
	case *Comparison:
		v, err := valueToWire(node.Literal)
		if err != nil {
			return nil, err
		}
		return &wireNode{
			Kind:     KindComparison,
			Op:       string(node.Op),
			Property: node.Property.Name,
			PropType: node.Property.Type,
			Values:   []wireValue{v},
		}, nil

	case *Combination:
		children := make([]*wireNode, len(node.Children))
		for i, child := range node.Children {
			w, err := toWire(child)
			if err != nil {
				return nil, err
			}
			children[i] = w
		}
		return &wireNode{Kind: KindCombination, Op: string(node.Op), Children: children}, nil

	case *Not:
		child, err := toWire(node.Child)
		if err != nil {
			return nil, err
		}
		return &wireNode{Kind: KindNot, Children: []*wireNode{child}}, nil

	case *Between:
		lower, err := valueToWire(node.Lower)
		if err != nil {
			return nil, err
		}
		upper, err := valueToWire(node.Upper)
		if err != nil {
			return nil, err
		}
		return &wireNode{
			Kind:     KindBetween,
			Property: node.Property.Name,
			PropType: node.Property.Type,
			Values:   []wireValue{lower, upper},
		}, nil

	case *Like:
		return &wireNode{
			Kind:     KindLike,
			Property: node.Property.Name,
			PropType: node.Property.Type,
			Pattern:  node.Pattern,
			NoCase:   node.CaseInsensitive,
			Negate:   node.Negate,
		}, nil

	case *In:
		values := make([]wireValue, len(node.Values))
		for i, v := range node.Values {
			w, err := valueToWire(v)
			if err != nil {
				return nil, err
			}
			values[i] = w
		}
		return &wireNode{
			Kind:     KindIn,
			Property: node.Property.Name,
			PropType: node.Property.Type,
			Values:   values,
			Negate:   node.Negate,
		}, nil

	case *Null:
		return &wireNode{
			Kind:     KindNull,
			Property: node.Property.Name,
			PropType: node.Property.Type,
			Negate:   node.Negate,
		}, nil

	case *BBox:
		return &wireNode{
			Kind:     KindBBox,
			Property: node.Property.Name,
			PropType: node.Property.Type,
			Extent:   node.Extent,
		}, nil

	case *Spatial:
		geom, err := wkb.Marshal(node.Geometry)
		if err != nil {
			return nil, fmt.Errorf("encoding %s geometry: %w", node.Op, err)
		}
		return &wireNode{
			Kind:     KindSpatial,
			Op:       string(node.Op),
			Property: node.Property.Name,
			PropType: node.Property.Type,
			Geometry: geom,
			Distance: node.Distance,
			Units:    node.Units,
			Pattern:  node.Pattern,
		}, nil

	case *Temporal:
		return &wireNode{
			Kind:     KindTemporal,
			Op:       string(node.Op),
			Property: node.Property.Name,
			PropType: node.Property.Type,
			Start:    node.Start,
			End:      node.End,
			Interval: node.Interval,
		}, nil

	default:
		return nil, fmt.Errorf("cannot encode node type %T", n)
	}
}

func fromWire(w *wireNode) (Node, error) {
	prop := PropertyRef{Name: w.Property, Type: w.PropType}

	switch w.Kind {
	case KindComparison:
		if len(w.Values) != 1 {
			return nil, fmt.Errorf("comparison requires 1 literal, got %d", len(w.Values))
		}
		lit, err := valueFromWire(w.Values[0])
		if err != nil {
			return nil, err
		}
		return &Comparison{Op: CompareOp(w.Op), Property: prop, Literal: lit}, nil

	case KindCombination:
		children := make([]Node, len(w.Children))
		for i, child := range w.Children {
			n, err := fromWire(child)
			if err != nil {
				return nil, err
			}
			children[i] = n
		}
		return &Combination{Op: LogicOp(w.Op), Children: children}, nil

	case KindNot:
		if len(w.Children) != 1 {
			return nil, fmt.Errorf("NOT requires 1 child, got %d", len(w.Children))
		}
		child, err := fromWire(w.Children[0])
		if err != nil {
			return nil, err
		}
		return &Not{Child: child}, nil

	case KindBetween:
		if len(w.Values) != 2 {
			return nil, fmt.Errorf("BETWEEN requires 2 literals, got %d", len(w.Values))
		}
		lower, err := valueFromWire(w.Values[0])
		if err != nil {
			return nil, err
		}
		upper, err := valueFromWire(w.Values[1])
		if err != nil {
			return nil, err
		}
		return &Between{Property: prop, Lower: lower, Upper: upper}, nil

	case KindLike:
		return &Like{Property: prop, Pattern: w.Pattern, CaseInsensitive: w.NoCase, Negate: w.Negate}, nil

	case KindIn:
		values := make([]Value, len(w.Values))
		for i, v := range w.Values {
			value, err := valueFromWire(v)
			if err != nil {
				return nil, err
			}
			values[i] = value
		}
		return &In{Property: prop, Values: values, Negate: w.Negate}, nil

	case KindNull:
		return &Null{Property: prop, Negate: w.Negate}, nil

	case KindBBox:
		return &BBox{Property: prop, Extent: w.Extent}, nil

	case KindSpatial:
		geom, err := wkb.Unmarshal(w.Geometry)
		if err != nil {
			return nil, fmt.Errorf("decoding %s geometry: %w", w.Op, err)
		}
		return &Spatial{
			Op:       SpatialOp(w.Op),
			Property: prop,
			Geometry: geom,
			Distance: w.Distance,
			Units:    w.Units,
			Pattern:  w.Pattern,
		}, nil

	case KindTemporal:
		return &Temporal{
			Op:       TemporalOp(w.Op),
			Property: prop,
			Start:    w.Start.UTC(),
			End:      w.End.UTC(),
			Interval: w.Interval,
		}, nil

	default:
		return nil, fmt.Errorf("unknown node kind %q", w.Kind)
	}
}

func valueToWire(v Value) (wireValue, error) {
	w := wireValue{Type: v.Type}
	switch v.Type {
	case TypeBoolean:
		w.Bool, _ = v.Data.(bool)
	case TypeNumber:
		w.Num, _ = v.AsNumber()
	case TypeString:
		w.Str, _ = v.AsString()
	case TypeDate:
		w.Time, _ = v.AsTime()
	case TypeGeometry:
		g, ok := v.AsGeometry()
		if !ok {
			return wireValue{}, fmt.Errorf("geometry value holds %T", v.Data)
		}
		data, err := wkb.Marshal(g)
		if err != nil {
			return wireValue{}, fmt.Errorf("encoding geometry value: %w", err)
		}
		w.Geom = data
	default:
		return wireValue{}, fmt.Errorf("cannot encode value type %q", v.Type)
	}
	return w, nil
}

func valueFromWire(w wireValue) (Value, error) {
	switch w.Type {
	case TypeBoolean:
		return Bool(w.Bool), nil
	case TypeNumber:
		return Number(w.Num), nil
	case TypeString:
		return String(w.Str), nil
	case TypeDate:
		return Timestamp(w.Time), nil
	case TypeGeometry:
		g, err := wkb.Unmarshal(w.Geom)
		if err != nil {
			return Value{}, fmt.Errorf("decoding geometry value: %w", err)
		}
		return Geometry(g), nil
	default:
		return Value{}, fmt.Errorf("unknown value type %q", w.Type)
	}
}
