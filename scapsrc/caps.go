package scapsrc

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
)

const MediaType = "video/x-raw"

var ErrInvalidCaps = errors.New("invalid caps")

// Caps describes a set of raw video formats. Empty layouts and zero fields
// leave that dimension unconstrained, so the zero Caps accepts anything.
type Caps struct {
	Layouts   []PixelLayout
	Width     uint32
	Height    uint32
	Framerate Fraction
}

// FixedCaps describes exactly one format.
func FixedCaps(f VideoFormat) Caps {
	return Caps{
		Layouts:   []PixelLayout{f.Layout},
		Width:     f.Width,
		Height:    f.Height,
		Framerate: f.Framerate,
	}
}

func (c Caps) IsAny() bool {
	return len(c.Layouts) == 0 && c.Width == 0 && c.Height == 0 && c.Framerate.IsZero()
}

func (c Caps) IsFixed() bool {
	return len(c.Layouts) == 1 && c.Width > 0 && c.Height > 0
}

// Format returns the single format fixed caps describe.
func (c Caps) Format() (VideoFormat, bool) {
	if !c.IsFixed() {
		return VideoFormat{}, false
	}
	return VideoFormat{
		Layout:    c.Layouts[0],
		Width:     c.Width,
		Height:    c.Height,
		Framerate: c.Framerate,
	}, true
}

func (c Caps) Accepts(f VideoFormat) bool {
	if len(c.Layouts) > 0 && !slices.Contains(c.Layouts, f.Layout) {
		return false
	}
	if c.Width != 0 && c.Width != f.Width {
		return false
	}
	if c.Height != 0 && c.Height != f.Height {
		return false
	}
	if !c.Framerate.IsZero() && !f.Framerate.IsZero() &&
		c.Framerate.Num*f.Framerate.Den != f.Framerate.Num*c.Framerate.Den {
		return false
	}
	return true
}

func (c Caps) String() string {
	var b strings.Builder
	b.WriteString(MediaType)
	switch len(c.Layouts) {
	case 0:
	case 1:
		fmt.Fprintf(&b, ", format=%s", c.Layouts[0])
	default:
		names := make([]string, len(c.Layouts))
		for i, l := range c.Layouts {
			names[i] = l.String()
		}
		fmt.Fprintf(&b, ", format={ %s }", strings.Join(names, ", "))
	}
	if c.Width != 0 {
		fmt.Fprintf(&b, ", width=%d", c.Width)
	}
	if c.Height != 0 {
		fmt.Fprintf(&b, ", height=%d", c.Height)
	}
	if !c.Framerate.IsZero() {
		fmt.Fprintf(&b, ", framerate=%s", c.Framerate)
	}
	return b.String()
}

// ParseCaps reads the syntax produced by Caps.String. Typed values such as
// "(int)1920" are accepted, ranges leave the field unconstrained and unknown
// fields are ignored. An empty string or "ANY" yields caps that accept
// everything.
func ParseCaps(s string) (Caps, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "ANY") {
		return Caps{}, nil
	}

	parts := splitTopLevel(s)
	if strings.TrimSpace(parts[0]) != MediaType {
		return Caps{}, fmt.Errorf("%w: media type %q, want %s", ErrInvalidCaps, parts[0], MediaType)
	}

	var caps Caps
	for _, field := range parts[1:] {
		key, value, ok := strings.Cut(field, "=")
		if !ok {
			return Caps{}, fmt.Errorf("%w: field %q has no value", ErrInvalidCaps, field)
		}
		key = strings.TrimSpace(key)
		value = stripType(strings.TrimSpace(value))
		if strings.HasPrefix(value, "[") {
			continue
		}

		var err error
		switch key {
		case "format":
			caps.Layouts, err = parseLayouts(value)
		case "width":
			caps.Width, err = parseDimension(value)
		case "height":
			caps.Height, err = parseDimension(value)
		case "framerate":
			caps.Framerate, err = parseFraction(value)
		}
		if err != nil {
			return Caps{}, fmt.Errorf("%w: %s: %w", ErrInvalidCaps, key, err)
		}
	}
	return caps, nil
}

func splitTopLevel(s string) []string {
	var parts []string
	depth, start := 0, 0
	for i, r := range s {
		switch r {
		case '{', '[', '(':
			depth++
		case '}', ']', ')':
			depth--
		case ',':
			if depth == 0 {
				parts = append(parts, strings.TrimSpace(s[start:i]))
				start = i + 1
			}
		}
	}
	return append(parts, strings.TrimSpace(s[start:]))
}

func stripType(value string) string {
	if strings.HasPrefix(value, "(") {
		if _, rest, ok := strings.Cut(value, ")"); ok {
			return strings.TrimSpace(rest)
		}
	}
	return value
}

func parseLayouts(value string) ([]PixelLayout, error) {
	value = strings.TrimSuffix(strings.TrimPrefix(value, "{"), "}")
	var layouts []PixelLayout
	for _, name := range strings.Split(value, ",") {
		l, err := ParsePixelLayout(stripType(strings.TrimSpace(name)))
		if err != nil {
			return nil, err
		}
		layouts = append(layouts, l)
	}
	return layouts, nil
}

func parseDimension(value string) (uint32, error) {
	v, err := strconv.ParseUint(value, 10, 32)
	if err != nil {
		return 0, err
	}
	return uint32(v), nil
}
