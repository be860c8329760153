// Package shapes is a small mutable object model used to exercise chains:
// a container that creates shapes, and shapes whose dimensions are set one
// call at a time.
package shapes

import (
	"errors"
	"fmt"
	"sort"
)

// ErrUnknownShape is returned by Create for a kind it cannot build.
var ErrUnknownShape = errors.New("unknown shape")

// Shape is anything with an area.
type Shape interface {
	Area() float64
}

// Square has one side length.
type Square struct {
	Length float64
}

// NewSquare creates a square.
func NewSquare(length float64) *Square {
	return &Square{Length: length}
}

func (s *Square) SetLength(length float64) { s.Length = length }

func (s *Square) Area() float64 { return s.Length * s.Length }

// Rectangle has a width and a length.
type Rectangle struct {
	Width  float64
	Length float64
}

// NewRectangle creates a rectangle.
func NewRectangle(width, length float64) *Rectangle {
	return &Rectangle{Width: width, Length: length}
}

func (r *Rectangle) SetWidth(width float64) { r.Width = width }

func (r *Rectangle) SetLength(length float64) { r.Length = length }

func (r *Rectangle) Area() float64 { return r.Length * r.Width }

// Triangle has a base and a height.
type Triangle struct {
	Base   float64
	Height float64
}

// NewTriangle creates a triangle.
func NewTriangle(base, height float64) *Triangle {
	return &Triangle{Base: base, Height: height}
}

func (t *Triangle) SetBase(base float64) { t.Base = base }

func (t *Triangle) SetHeight(height float64) { t.Height = height }

func (t *Triangle) Area() float64 { return t.Base * 0.5 * t.Height }

type factory struct {
	dims  int
	build func(d []float64) Shape
}

var factories = map[string]factory{
	"square": {1, func(d []float64) Shape {
		return NewSquare(d[0])
	}},
	"rectangle": {2, func(d []float64) Shape {
		return NewRectangle(d[0], d[1])
	}},
	"triangle": {2, func(d []float64) Shape {
		return NewTriangle(d[0], d[1])
	}},
}

// Kinds returns the shape kinds Create understands, sorted.
func Kinds() []string {
	kinds := make([]string, 0, len(factories))
	for k := range factories {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// Shapes is an ordered collection of shapes.
type Shapes struct {
	shapes []Shape
}

// New returns an empty collection.
func New() *Shapes {
	return &Shapes{shapes: []Shape{}}
}

// AddShape appends shape.
func (s *Shapes) AddShape(shape Shape) {
	s.shapes = append(s.shapes, shape)
}

// Create builds a shape of the given kind, appends it and returns it.
// Missing dimensions are zero.
func (s *Shapes) Create(kind string, dims ...float64) (Shape, error) {
	f, ok := factories[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownShape, kind)
	}
	if len(dims) > f.dims {
		return nil, fmt.Errorf("%s takes at most %d dimensions, got %d", kind, f.dims, len(dims))
	}
	d := make([]float64, f.dims)
	copy(d, dims)

	shape := f.build(d)
	s.AddShape(shape)
	return shape, nil
}

// TotalArea sums the area of every shape.
func (s *Shapes) TotalArea() float64 {
	var total float64
	for _, shape := range s.shapes {
		total += shape.Area()
	}
	return total
}

// Items returns the shapes in creation order.
func (s *Shapes) Items() []Shape {
	return s.shapes
}

// Len returns the number of shapes.
func (s *Shapes) Len() int {
	return len(s.shapes)
}
