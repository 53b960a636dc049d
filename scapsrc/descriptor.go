package scapsrc

import (
	"math"
	"slices"
)

// PropertySpec describes one element property.
type PropertySpec struct {
	Name    string `yaml:"name"`
	Nick    string `yaml:"nick"`
	Blurb   string `yaml:"blurb"`
	Type    string `yaml:"type"`
	Default any    `yaml:"default"`
	Minimum any    `yaml:"minimum,omitempty"`
	Maximum any    `yaml:"maximum,omitempty"`
	// Mutable names the lowest state in which a write still affects the
	// running stream.
	Mutable string `yaml:"mutable"`
}

// Descriptor is the static capability description of the element. It is
// built once and shared by every element created with it.
type Descriptor struct {
	Name        string         `yaml:"name"`
	Klass       string         `yaml:"klass"`
	Description string         `yaml:"description"`
	Live        bool           `yaml:"live"`
	Layouts     []PixelLayout  `yaml:"layouts"`
	Properties  []PropertySpec `yaml:"properties"`
}

func DefaultDescriptor() *Descriptor {
	return &Descriptor{
		Name:        "scapsrc",
		Klass:       "Source/Video",
		Description: "Live screen capture source",
		Live:        true,
		Layouts:     SupportedLayouts(),
		Properties: []PropertySpec{
			{
				Name:    PropFPS,
				Nick:    "Frames per second",
				Blurb:   "Rate the capture backend is asked to deliver frames at",
				Type:    "uint",
				Default: uint32(DefaultFPS),
				Minimum: uint32(1),
				Maximum: uint32(math.MaxUint32),
				Mutable: "ready",
			},
			{
				Name:    PropShowCursor,
				Nick:    "Show cursor",
				Blurb:   "Whether to capture the cursor or not",
				Type:    "bool",
				Default: DefaultShowCursor,
				Mutable: "ready",
			},
			{
				Name:    PropPerformInternalPreroll,
				Nick:    "Perform internal preroll",
				Blurb:   "Pull one frame while pausing so the format is known before the first buffer",
				Type:    "bool",
				Default: DefaultPerformInternalPreroll,
				Mutable: "ready",
			},
		},
	}
}

// TemplateCaps is the answer to a caps query before anything was negotiated.
func (d *Descriptor) TemplateCaps() Caps {
	return Caps{Layouts: slices.Clone(d.Layouts)}
}

func (d *Descriptor) Supports(l PixelLayout) bool {
	return slices.Contains(d.Layouts, l)
}

// Property looks a property up by name. Underscores and hyphens are
// interchangeable.
func (d *Descriptor) Property(name string) (PropertySpec, bool) {
	name = canonicalProperty(name)
	for _, p := range d.Properties {
		if p.Name == name {
			return p, true
		}
	}
	return PropertySpec{}, false
}
