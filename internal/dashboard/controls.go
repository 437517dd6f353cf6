package dashboard

import (
	"math"
	"strconv"
	"strings"
	"sync"
)

// Control is a filter input whose changes trigger a reload.
type Control interface {
	Value() any
	SetValue(v any)
	OnChange(fn func())
}

type hooks struct {
	mu  sync.Mutex
	fns []func()
}

func (h *hooks) add(fn func()) {
	if fn == nil {
		return
	}
	h.mu.Lock()
	h.fns = append(h.fns, fn)
	h.mu.Unlock()
}

func (h *hooks) fire() {
	h.mu.Lock()
	fns := append([]func(){}, h.fns...)
	h.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

// IntControl holds an optional integer such as the year.
type IntControl struct {
	Label string

	mu    sync.Mutex
	value *int
	hooks hooks
}

// NewIntControl returns a control preset to def without firing hooks.
func NewIntControl(label string, def int) *IntControl {
	return &IntControl{Label: label, value: &def}
}

// Value returns the current integer, or nil when empty.
func (c *IntControl) Value() any {
	if v, ok := c.Int(); ok {
		return v
	}
	return nil
}

// Int returns the current integer and whether it is set.
func (c *IntControl) Int() (int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.value == nil {
		return 0, false
	}
	return *c.value, true
}

// SetValue coerces v to an integer. Input that does not parse empties the
// control. Hooks fire only when the value changes.
func (c *IntControl) SetValue(v any) {
	next := coerceInt(v)

	c.mu.Lock()
	changed := !sameInt(c.value, next)
	c.value = next
	c.mu.Unlock()

	if changed {
		c.hooks.fire()
	}
}

// OnChange registers fn to run after each change.
func (c *IntControl) OnChange(fn func()) {
	c.hooks.add(fn)
}

// LinkControl holds an optional reference to a named record such as a company.
type LinkControl struct {
	Label   string
	Doctype string

	mu    sync.Mutex
	value string
	hooks hooks
}

// NewLinkControl returns an empty link control.
func NewLinkControl(label, doctype string) *LinkControl {
	return &LinkControl{Label: label, Doctype: doctype}
}

// Value returns the linked name, or nil when empty.
func (c *LinkControl) Value() any {
	if s := c.String(); s != "" {
		return s
	}
	return nil
}

// String returns the linked name.
func (c *LinkControl) String() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value
}

// SetValue stores v as the linked name. Hooks fire only when it changes.
func (c *LinkControl) SetValue(v any) {
	var next string
	switch value := v.(type) {
	case string:
		next = strings.TrimSpace(value)
	case *string:
		if value != nil {
			next = strings.TrimSpace(*value)
		}
	}

	c.mu.Lock()
	changed := c.value != next
	c.value = next
	c.mu.Unlock()

	if changed {
		c.hooks.fire()
	}
}

// OnChange registers fn to run after each change.
func (c *LinkControl) OnChange(fn func()) {
	c.hooks.add(fn)
}

func coerceInt(v any) *int {
	switch value := v.(type) {
	case int:
		return &value
	case *int:
		if value == nil {
			return nil
		}
		n := *value
		return &n
	case float64:
		// JSON numbers decode as float64; only whole values are years.
		if math.IsNaN(value) || math.IsInf(value, 0) || value != math.Trunc(value) {
			return nil
		}
		n := int(value)
		return &n
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return nil
		}
		return &n
	default:
		return nil
	}
}

func sameInt(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
