package scene

import (
	"errors"
	"fmt"
	"slices"
)

var (
	ErrSceneIndex      = errors.New("scene index out of range")
	ErrElementNotFound = errors.New("element not found")
)

// The editing helpers never mutate their receiver. Each returns a new
// Composition whose untouched scenes and elements are shared with the old one,
// so a value handed to a render pass stays immutable.

func (c *Composition) clone() *Composition {
	out := &Composition{Meta: c.Meta, Scenes: slices.Clone(c.Scenes)}
	return out
}

func (c *Composition) sceneAt(i int) error {
	if i < 0 || i >= len(c.Scenes) {
		return fmt.Errorf("%w: %d of %d", ErrSceneIndex, i, len(c.Scenes))
	}
	return nil
}

// UpdateScene replaces scene i wholesale.
func (c *Composition) UpdateScene(i int, s Scene) (*Composition, error) {
	if err := c.sceneAt(i); err != nil {
		return nil, err
	}
	out := c.clone()
	out.Scenes[i] = s
	return out, nil
}

// AddScene inserts a scene at index i; i == len(Scenes) appends.
func (c *Composition) AddScene(i int, s Scene) (*Composition, error) {
	if i < 0 || i > len(c.Scenes) {
		return nil, fmt.Errorf("%w: %d of %d", ErrSceneIndex, i, len(c.Scenes))
	}
	out := c.clone()
	out.Scenes = slices.Insert(out.Scenes, i, s)
	return out, nil
}

// RemoveScene drops scene i.
func (c *Composition) RemoveScene(i int) (*Composition, error) {
	if err := c.sceneAt(i); err != nil {
		return nil, err
	}
	out := c.clone()
	out.Scenes = slices.Delete(out.Scenes, i, i+1)
	return out, nil
}

// MoveScene moves scene from to position to.
func (c *Composition) MoveScene(from, to int) (*Composition, error) {
	if err := c.sceneAt(from); err != nil {
		return nil, err
	}
	if err := c.sceneAt(to); err != nil {
		return nil, err
	}
	out := c.clone()
	s := out.Scenes[from]
	out.Scenes = slices.Delete(out.Scenes, from, from+1)
	out.Scenes = slices.Insert(out.Scenes, to, s)
	return out, nil
}

// AddElement appends an element to scene i.
func (c *Composition) AddElement(i int, el Element) (*Composition, error) {
	if err := c.sceneAt(i); err != nil {
		return nil, err
	}
	out := c.clone()
	s := out.Scenes[i]
	s.Elements = append(slices.Clone(s.Elements), el)
	out.Scenes[i] = s
	return out, nil
}

// ReplaceElement swaps the element of scene i that has el's id.
func (c *Composition) ReplaceElement(i int, el Element) (*Composition, error) {
	if err := c.sceneAt(i); err != nil {
		return nil, err
	}
	id := el.Base().ID
	_, idx := c.Scenes[i].Elements.Find(id)
	if idx < 0 {
		return nil, fmt.Errorf("%w: %q in scenes[%d]", ErrElementNotFound, id, i)
	}
	out := c.clone()
	s := out.Scenes[i]
	s.Elements = slices.Clone(s.Elements)
	s.Elements[idx] = el
	out.Scenes[i] = s
	return out, nil
}

// RemoveElement drops the element with the given id from scene i.
func (c *Composition) RemoveElement(i int, id string) (*Composition, error) {
	if err := c.sceneAt(i); err != nil {
		return nil, err
	}
	_, idx := c.Scenes[i].Elements.Find(id)
	if idx < 0 {
		return nil, fmt.Errorf("%w: %q in scenes[%d]", ErrElementNotFound, id, i)
	}
	out := c.clone()
	s := out.Scenes[i]
	s.Elements = slices.Delete(slices.Clone(s.Elements), idx, idx+1)
	out.Scenes[i] = s
	return out, nil
}
