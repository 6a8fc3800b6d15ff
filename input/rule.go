// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package input

import "fmt"

// Handler is the callback a Rule invokes for a matching event.
// Handlers run on the dispatching goroutine and should only touch state
// that is safe for that goroutine, such as an avatar's pending input.
type Handler func(Event)

// Rule is an immutable matcher: an event category, an exact modifier
// mask and a handler. Key rules additionally require a key code.
//
// A Rule matches an Event when the categories are equal and the event's
// significant modifier bits equal the rule's mask exactly. A rule for
// Shift does not match Shift+Control, and a rule for no modifiers does
// not match Shift.
type Rule struct {
	category Category
	mask     Modifiers
	key      Key
	keyed    bool
	handler  Handler
}

// NewRule returns a rule for category with the required modifier mask.
// Non-significant bits in mask are dropped.
func NewRule(category Category, mask Modifiers, h Handler) Rule {
	return Rule{category: category, mask: mask.Significant(), handler: h}
}

// NewKeyRule returns a rule for a KeyDown or KeyUp category that also
// requires the event key to equal key.
func NewKeyRule(category Category, key Key, mask Modifiers, h Handler) Rule {
	r := NewRule(category, mask, h)
	r.key = key
	r.keyed = true
	return r
}

// OnKeyDown matches presses of key with exactly mask held.
func OnKeyDown(key Key, mask Modifiers, h Handler) Rule {
	return NewKeyRule(KeyDown, key, mask, h)
}

// OnKeyUp matches releases of key with exactly mask held.
func OnKeyUp(key Key, mask Modifiers, h Handler) Rule {
	return NewKeyRule(KeyUp, key, mask, h)
}

// OnFlagsChanged matches modifier transitions that leave exactly mask held.
func OnFlagsChanged(mask Modifiers, h Handler) Rule {
	return NewRule(FlagsChanged, mask, h)
}

func OnMouseDown(mask Modifiers, h Handler) Rule { return NewRule(MouseDown, mask, h) }

func OnMouseUp(mask Modifiers, h Handler) Rule { return NewRule(MouseUp, mask, h) }

func OnRightMouseDown(mask Modifiers, h Handler) Rule { return NewRule(RightMouseDown, mask, h) }

func OnRightMouseUp(mask Modifiers, h Handler) Rule { return NewRule(RightMouseUp, mask, h) }

func OnMouseMoved(mask Modifiers, h Handler) Rule { return NewRule(MouseMoved, mask, h) }

func OnMouseDragged(mask Modifiers, h Handler) Rule { return NewRule(MouseDragged, mask, h) }

func OnRightMouseDragged(mask Modifiers, h Handler) Rule {
	return NewRule(RightMouseDragged, mask, h)
}

func OnScrollWheel(mask Modifiers, h Handler) Rule { return NewRule(ScrollWheel, mask, h) }

// Category returns the rule's event category.
func (r Rule) Category() Category { return r.category }

// Mask returns the required significant modifier mask.
func (r Rule) Mask() Modifiers { return r.mask }

// Key returns the required key and whether the rule is keyed.
func (r Rule) Key() (Key, bool) { return r.key, r.keyed }

// Matches reports whether e satisfies the rule.
func (r Rule) Matches(e Event) bool {
	if e.Category != r.category {
		return false
	}
	if e.Modifiers.Significant() != r.mask {
		return false
	}
	if r.keyed && e.Key != r.key {
		return false
	}
	return true
}

func (r Rule) String() string {
	if r.keyed {
		return fmt.Sprintf("%s key=%d mods=%s", r.category, r.key, r.mask)
	}
	return fmt.Sprintf("%s mods=%s", r.category, r.mask)
}
