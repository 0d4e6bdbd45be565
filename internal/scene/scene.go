// Package scene reads and writes place documents: a YAML tree of named
// instances carrying typed properties.
package scene

import (
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// ErrNullInstance is returned when the document lists an empty instance entry.
var ErrNullInstance = errors.New("null instance")

// Document is a place file.
type Document struct {
	Instances []*Instance `yaml:"instances"`
}

// Instance is one node of the place tree.
type Instance struct {
	Name       string               `yaml:"name"`
	Class      string               `yaml:"class,omitempty"`
	Properties map[string]*Property `yaml:"properties,omitempty"`
	Children   []*Instance          `yaml:"children,omitempty"`
}

// Load reads a document from path.
func Load(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "opening place")
	}
	defer f.Close()

	doc, err := Decode(f)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", path)
	}
	return doc, nil
}

// Decode reads a document from r and checks every property.
func Decode(r io.Reader) (*Document, error) {
	var doc Document
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		if err == io.EOF {
			return &doc, nil
		}
		return nil, errors.Wrap(err, "decoding place")
	}
	if err := doc.validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

func (d *Document) validate() error {
	for i, top := range d.Instances {
		if top == nil {
			return errors.Wrapf(ErrNullInstance, "instance %d", i)
		}
		for _, inst := range append([]*Instance{top}, Descendants(top)...) {
			for j, child := range inst.Children {
				if child == nil {
					return errors.Wrapf(ErrNullInstance, "%s child %d", inst.Name, j)
				}
			}
			for name, prop := range inst.Properties {
				if prop == nil {
					return &PropertyError{Object: inst.Name, Field: name, Err: ErrPropertyMissing}
				}
				if err := prop.check(); err != nil {
					return &PropertyError{Object: inst.Name, Field: name, Err: err}
				}
			}
		}
	}
	return nil
}

// Encode writes the document as YAML.
func (d *Document) Encode(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(d); err != nil {
		return errors.Wrap(err, "encoding place")
	}
	return errors.Wrap(enc.Close(), "encoding place")
}

// Save writes the document to path. The file is replaced only after the
// whole document has been written.
func (d *Document) Save(path string) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return errors.Wrap(err, "saving place")
	}
	defer os.Remove(tmp.Name())

	if err := d.Encode(tmp); err != nil {
		tmp.Close()
		return errors.Wrapf(err, "saving %s", path)
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrapf(err, "saving %s", path)
	}
	return errors.Wrapf(os.Rename(tmp.Name(), path), "saving %s", path)
}
