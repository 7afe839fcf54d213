// Package store is the hierarchical array container meshes are laid out in:
// groups holding child groups, named typed arrays and JSON attributes, in the
// spirit of a zarr hierarchy.
package store

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/recolude/plyzarr/ndarray"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrInvalidKey = errors.New("invalid key")
	ErrExists     = errors.New("name already used by another node kind")
)

// Group is a container node. Attribute values are anything encoding/json can
// handle; Attr decodes the stored value into v.
type Group interface {
	SetAttr(key string, v any) error
	Attr(key string, v any) error
	AttrKeys() ([]string, error)
	RemoveAttr(key string) error

	// CreateGroup returns the named child group, creating it when missing.
	CreateGroup(name string) (Group, error)
	Group(name string) (Group, error)
	GroupKeys() ([]string, error)
	// RemoveGroup deletes the named child group and everything below it.
	// Removing a missing group is not an error.
	RemoveGroup(name string) error

	// SetArray stores a, replacing any array of the same name.
	SetArray(name string, a *ndarray.Array) error
	Array(name string) (*ndarray.Array, error)
	ArrayKeys() ([]string, error)
	RemoveArray(name string) error
}

// ValidKey reports whether name may label a child node.
func ValidKey(name string) error {
	if name == "" || name == "." || name == ".." ||
		strings.ContainsAny(name, `/\`) || strings.HasPrefix(name, ".") {
		return errors.Wrapf(ErrInvalidKey, "%q", name)
	}
	return nil
}
