package declare

import (
	"fmt"
	"strings"
)

// DuplicateNodeError means the same logical name is declared twice.
type DuplicateNodeError struct {
	Name string
}

func (e DuplicateNodeError) Error() string {
	return fmt.Sprintf("duplicate declaration: %s", e.Name)
}

// DependencyNotFoundError means a declaration references a name that is not declared.
type DependencyNotFoundError struct {
	From string
	To   Ref
}

func (e DependencyNotFoundError) Error() string {
	return fmt.Sprintf("declaration dependency not found: %s -> %s", e.From, e.To)
}

// CycleDetectedError means the declarations reference each other in a loop.
type CycleDetectedError struct {
	Path []string
}

func (e CycleDetectedError) Error() string {
	if len(e.Path) == 0 {
		return "declaration dependency cycle detected"
	}
	return "declaration dependency cycle detected: " + strings.Join(e.Path, " -> ")
}
