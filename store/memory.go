package store

import (
	"encoding/json"

	"cogentcore.org/core/base/ordmap"
	"github.com/pkg/errors"

	"github.com/recolude/plyzarr/ndarray"
)

// Memory is a Group kept entirely in memory. Children are listed in the order
// they were created. Attributes are held in encoded form so callers never
// share values with the store.
type Memory struct {
	attrs  *ordmap.Map[string, json.RawMessage]
	groups *ordmap.Map[string, *Memory]
	arrays *ordmap.Map[string, *ndarray.Array]
}

func NewMemory() *Memory {
	return &Memory{
		attrs:  ordmap.New[string, json.RawMessage](),
		groups: ordmap.New[string, *Memory](),
		arrays: ordmap.New[string, *ndarray.Array](),
	}
}

func (m *Memory) SetAttr(key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return errors.Wrapf(err, "encoding attribute %s", key)
	}
	m.attrs.Add(key, raw)
	return nil
}

func (m *Memory) Attr(key string, v any) error {
	raw, ok := m.attrs.ValueByKeyTry(key)
	if !ok {
		return errors.Wrapf(ErrNotFound, "attribute %s", key)
	}
	return errors.Wrapf(json.Unmarshal(raw, v), "decoding attribute %s", key)
}

func (m *Memory) AttrKeys() ([]string, error) {
	return m.attrs.Keys(), nil
}

func (m *Memory) RemoveAttr(key string) error {
	m.attrs.DeleteKey(key)
	return nil
}

func (m *Memory) CreateGroup(name string) (Group, error) {
	if err := ValidKey(name); err != nil {
		return nil, err
	}
	if g, ok := m.groups.ValueByKeyTry(name); ok {
		return g, nil
	}
	if _, ok := m.arrays.ValueByKeyTry(name); ok {
		return nil, errors.Wrapf(ErrExists, "%s is an array", name)
	}
	g := NewMemory()
	m.groups.Add(name, g)
	return g, nil
}

func (m *Memory) Group(name string) (Group, error) {
	g, ok := m.groups.ValueByKeyTry(name)
	if !ok {
		return nil, errors.Wrapf(ErrNotFound, "group %s", name)
	}
	return g, nil
}

func (m *Memory) GroupKeys() ([]string, error) {
	return m.groups.Keys(), nil
}

func (m *Memory) RemoveGroup(name string) error {
	if err := ValidKey(name); err != nil {
		return err
	}
	if _, ok := m.arrays.ValueByKeyTry(name); ok {
		return errors.Wrapf(ErrExists, "%s is an array", name)
	}
	m.groups.DeleteKey(name)
	return nil
}

func (m *Memory) SetArray(name string, a *ndarray.Array) error {
	if err := ValidKey(name); err != nil {
		return err
	}
	if _, ok := m.groups.ValueByKeyTry(name); ok {
		return errors.Wrapf(ErrExists, "%s is a group", name)
	}
	m.arrays.Add(name, a.Clone())
	return nil
}

func (m *Memory) Array(name string) (*ndarray.Array, error) {
	a, ok := m.arrays.ValueByKeyTry(name)
	if !ok {
		return nil, errors.Wrapf(ErrNotFound, "array %s", name)
	}
	return a.Clone(), nil
}

func (m *Memory) ArrayKeys() ([]string, error) {
	return m.arrays.Keys(), nil
}

func (m *Memory) RemoveArray(name string) error {
	if err := ValidKey(name); err != nil {
		return err
	}
	if _, ok := m.groups.ValueByKeyTry(name); ok {
		return errors.Wrapf(ErrExists, "%s is a group", name)
	}
	m.arrays.DeleteKey(name)
	return nil
}
