// Glowd - Supervisor for Scriptable Battery-Powered Display Appliances
// Copyright 2026 Glowstack Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/glowstack/glowd

package graphics

import (
	"fmt"
	"sync/atomic"
)

// Headless is an in-memory Driver used on hardware without a panel
// driver and throughout the test suite. It tracks object state so the
// mode logic is fully observable without rendering anything.
type Headless struct {
	// FailInit makes Init return ErrUnavailable, for bring-up tests.
	FailInit bool

	Brightness uint8
	Rotation   int
	Background uint32
	Flushes    atomic.Int64

	live atomic.Int64
}

// NewHeadless creates a headless driver.
func NewHeadless() *Headless { return &Headless{} }

// Init implements Driver.
func (d *Headless) Init() error {
	if d.FailInit {
		return ErrUnavailable
	}
	return nil
}

// SetBrightness implements Driver.
func (d *Headless) SetBrightness(level uint8) { d.Brightness = level }

// SetRotation implements Driver.
func (d *Headless) SetRotation(rotation int) { d.Rotation = rotation }

// Clear implements Driver.
func (d *Headless) Clear(rgb uint32) { d.Background = rgb }

// CreateLabel implements Driver.
func (d *Headless) CreateLabel(text string, x, y int) (Object, error) {
	d.live.Add(1)
	return &headlessObject{driver: d, kind: "label", Text: text, X: x, Y: y}, nil
}

// CreateImage implements Driver.
func (d *Headless) CreateImage(path string, x, y int) (Object, error) {
	if path == "" {
		return nil, fmt.Errorf("graphics: empty image path")
	}
	d.live.Add(1)
	return &headlessObject{driver: d, kind: "image", Text: path, X: x, Y: y}, nil
}

// CreateLine implements Driver.
func (d *Headless) CreateLine(x1, y1, x2, y2 int) (Object, error) {
	d.live.Add(1)
	return &headlessObject{driver: d, kind: "line", X: x1, Y: y1, X2: x2, Y2: y2}, nil
}

// Flush implements Driver.
func (d *Headless) Flush() { d.Flushes.Add(1) }

// Close implements Driver.
func (d *Headless) Close() {}

// Live returns the number of objects created and not yet deleted.
func (d *Headless) Live() int64 { return d.live.Load() }

// headlessObject records the mutations scripts apply to it.
type headlessObject struct {
	driver *Headless
	kind   string

	Text    string
	X, Y    int
	X2, Y2  int
	Angle   int
	Styles  map[string]string
	deleted bool
}

func (o *headlessObject) Move(x, y int) { o.X, o.Y = x, y }

func (o *headlessObject) Rotate(degrees int) { o.Angle = degrees }

func (o *headlessObject) SetStyle(property, value string) error {
	if property == "" {
		return fmt.Errorf("graphics: empty style property")
	}
	if o.Styles == nil {
		o.Styles = make(map[string]string)
	}
	o.Styles[property] = value
	return nil
}

func (o *headlessObject) Delete() {
	if !o.deleted {
		o.deleted = true
		o.driver.live.Add(-1)
	}
}
