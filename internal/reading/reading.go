// Package reading defines the classified temperature sample that flows from
// an ingestion source into the store, and the closed set of categories a
// sample can belong to.
package reading

import (
	"errors"
	"fmt"
	"time"
)

// ErrUnknownCategory is returned when a category code is not one of the
// known variants.
var ErrUnknownCategory = errors.New("unknown category")

// Category classifies a reading as ambient or as the room's target value.
type Category uint8

const (
	// Environment is the temperature measured in the room.
	Environment Category = iota
	// Reference is the target temperature the room is compared against.
	Reference

	numCategories
)

// Wire codes used in the transport topic.
const (
	CodeEnvironment = "0"
	CodeReference   = "1"
)

// Valid reports whether c is one of the known variants.
func (c Category) Valid() bool {
	return c < numCategories
}

func (c Category) String() string {
	switch c {
	case Environment:
		return "environment"
	case Reference:
		return "reference"
	default:
		return fmt.Sprintf("category(%d)", uint8(c))
	}
}

// Code returns the single-character transport code for c.
func (c Category) Code() string {
	switch c {
	case Environment:
		return CodeEnvironment
	case Reference:
		return CodeReference
	default:
		return ""
	}
}

// ParseCode maps a transport code ("0", "1") to its Category.
func ParseCode(code string) (Category, error) {
	switch code {
	case CodeEnvironment:
		return Environment, nil
	case CodeReference:
		return Reference, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownCategory, code)
	}
}

// Reading is a single immutable temperature sample.
type Reading struct {
	Time  time.Time
	Value float64 // Celsius
}

// New creates a Reading.
func New(t time.Time, value float64) Reading {
	return Reading{Time: t, Value: value}
}
