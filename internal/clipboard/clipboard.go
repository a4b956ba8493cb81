// Package clipboard copies processed text to the system clipboard.
package clipboard

import (
	"fmt"

	"github.com/atotto/clipboard"
)

// Writer abstracts the system clipboard for callers and tests.
type Writer interface {
	Write(text string) error
}

// System writes through the OS clipboard.
type System struct{}

func (System) Write(text string) error {
	if err := clipboard.WriteAll(text); err != nil {
		return fmt.Errorf("copy to clipboard: %w", err)
	}
	return nil
}
