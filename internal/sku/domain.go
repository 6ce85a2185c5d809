package sku

import (
	"errors"
	"fmt"
)

// Counter is the singleton record backing SKU generation.
type Counter struct {
	Prefix string
	Value  int64
}

// ErrPrefixRequired indicates an empty prefix update.
var ErrPrefixRequired = errors.New("sku: prefix required")

// Format renders a counter value as PREFIX-00001.
func Format(prefix string, value int64) string {
	return fmt.Sprintf("%s-%05d", prefix, value)
}
