package scene

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/Faultbox/meshdedup/pkg/math"
)

var (
	// ErrPropertyMissing is returned when an instance lacks a property.
	ErrPropertyMissing = errors.New("property missing")
	// ErrPropertyType is returned when a property holds another kind of value.
	ErrPropertyType = errors.New("property has wrong type")
)

// Property kinds.
const (
	KindContent = "content"
	KindString  = "string"
	KindVector3 = "vector3"
	KindCFrame  = "cframe"
)

// Property is a tagged value. Exactly one field is set.
type Property struct {
	Content *string   `yaml:"content,omitempty"`
	String  *string   `yaml:"string,omitempty"`
	Vector3 []float32 `yaml:"vector3,omitempty,flow"`
	CFrame  []float32 `yaml:"cframe,omitempty,flow"`
}

// PropertyError records a failed property access.
type PropertyError struct {
	Object string
	Field  string
	Err    error
}

func (e *PropertyError) Error() string {
	return fmt.Sprintf("%s.%s: %v", e.Object, e.Field, e.Err)
}

func (e *PropertyError) Unwrap() error { return e.Err }

// Kind returns the kind of value held, or "" when none or several are set.
func (p *Property) Kind() string {
	if p == nil {
		return ""
	}
	kind, n := "", 0
	if p.Content != nil {
		kind, n = KindContent, n+1
	}
	if p.String != nil {
		kind, n = KindString, n+1
	}
	if p.Vector3 != nil {
		kind, n = KindVector3, n+1
	}
	if p.CFrame != nil {
		kind, n = KindCFrame, n+1
	}
	if n != 1 {
		return ""
	}
	return kind
}

func (p *Property) check() error {
	switch p.Kind() {
	case "":
		return fmt.Errorf("%w: need exactly one of content, string, vector3, cframe", ErrPropertyType)
	case KindVector3:
		if len(p.Vector3) != 3 {
			return fmt.Errorf("%w: vector3 has %d components", ErrPropertyType, len(p.Vector3))
		}
	case KindCFrame:
		if len(p.CFrame) != 12 {
			return fmt.Errorf("%w: cframe has %d components", ErrPropertyType, len(p.CFrame))
		}
	}
	return nil
}

// Has reports whether the instance carries field.
func (i *Instance) Has(field string) bool {
	p, ok := i.Properties[field]
	return ok && p != nil
}

func (i *Instance) lookup(field, kind string) (*Property, error) {
	p, ok := i.Properties[field]
	if !ok || p == nil {
		return nil, &PropertyError{Object: i.Name, Field: field, Err: ErrPropertyMissing}
	}
	if got := p.Kind(); got != kind {
		return nil, &PropertyError{Object: i.Name, Field: field,
			Err: fmt.Errorf("%w: want %s, have %q", ErrPropertyType, kind, got)}
	}
	if err := p.check(); err != nil {
		return nil, &PropertyError{Object: i.Name, Field: field, Err: err}
	}
	return p, nil
}

// assign stores p under field unless a value of another kind is there.
func (i *Instance) assign(field string, p *Property) error {
	if old, ok := i.Properties[field]; ok && old != nil && old.Kind() != p.Kind() {
		return &PropertyError{Object: i.Name, Field: field,
			Err: fmt.Errorf("%w: cannot store %s over %q", ErrPropertyType, p.Kind(), old.Kind())}
	}
	if i.Properties == nil {
		i.Properties = make(map[string]*Property)
	}
	i.Properties[field] = p
	return nil
}

// String returns the instance name.
func (i *Instance) String() string { return i.Name }

// Content returns a content (asset reference) property.
func (i *Instance) Content(field string) (string, error) {
	p, err := i.lookup(field, KindContent)
	if err != nil {
		return "", err
	}
	return *p.Content, nil
}

// SetContent stores a content property.
func (i *Instance) SetContent(field, value string) error {
	return i.assign(field, &Property{Content: &value})
}

// StringValue returns a string property.
func (i *Instance) StringValue(field string) (string, error) {
	p, err := i.lookup(field, KindString)
	if err != nil {
		return "", err
	}
	return *p.String, nil
}

// SetString stores a string property.
func (i *Instance) SetString(field, value string) error {
	return i.assign(field, &Property{String: &value})
}

// Vector3 returns a vector property.
func (i *Instance) Vector3(field string) (math.Vec3, error) {
	p, err := i.lookup(field, KindVector3)
	if err != nil {
		return math.Vec3{}, err
	}
	return math.Vec3{X: p.Vector3[0], Y: p.Vector3[1], Z: p.Vector3[2]}, nil
}

// SetVector3 stores a vector property.
func (i *Instance) SetVector3(field string, v math.Vec3) error {
	return i.assign(field, &Property{Vector3: []float32{v.X, v.Y, v.Z}})
}

// CFrame returns a transform property.
func (i *Instance) CFrame(field string) (math.CFrame, error) {
	p, err := i.lookup(field, KindCFrame)
	if err != nil {
		return math.CFrame{}, err
	}
	var c [12]float32
	copy(c[:], p.CFrame)
	return math.CFrameFromComponents(c), nil
}

// SetCFrame stores a transform property.
func (i *Instance) SetCFrame(field string, cf math.CFrame) error {
	c := cf.Components()
	return i.assign(field, &Property{CFrame: c[:]})
}
