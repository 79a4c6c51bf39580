// Glowd - Supervisor for Scriptable Battery-Powered Display Appliances
// Copyright 2026 Glowstack Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/glowstack/glowd

package script

import (
	"sync"

	"go.starlark.net/starlark"

	"github.com/glowstack/glowd/internal/connectivity"
	"github.com/glowstack/glowd/internal/graphics"
	"github.com/glowstack/glowd/internal/handles"
	"github.com/glowstack/glowd/internal/logging"
	"github.com/glowstack/glowd/internal/memory"
	"github.com/glowstack/glowd/internal/storage"
)

// Bridge exposes the native object surface to scripts. Every function
// that creates a graphics object returns a non-negative integer handle
// or -1 on failure; every function that takes a handle silently no-ops
// (returning None or a default) when the handle is invalid. A script
// holding a stale handle must never crash the appliance.
type Bridge struct {
	gfx     graphics.Driver
	handles *handles.Registry
	conn    *connectivity.Supervisor
	store   storage.Store
	mem     *memory.Manager

	mu      sync.Mutex
	buffers map[handles.Handle]*memory.Allocation
}

// NewBridge wires the bridge to its collaborators. conn and store may
// be nil when the corresponding subsystem is disabled; the affected
// natives then return their failure defaults.
func NewBridge(gfx graphics.Driver, reg *handles.Registry, conn *connectivity.Supervisor, store storage.Store, mem *memory.Manager) *Bridge {
	return &Bridge{
		gfx:     gfx,
		handles: reg,
		conn:    conn,
		store:   store,
		mem:     mem,
		buffers: make(map[handles.Handle]*memory.Allocation),
	}
}

// SetConnectivity wires the messaging supervisor once it exists. The
// bring-up cascade builds connectivity after the bridge; call this
// before the script starts.
func (b *Bridge) SetConnectivity(conn *connectivity.Supervisor) {
	b.conn = conn
}

// Install registers the full native surface.
func (b *Bridge) Install(n *Natives) {
	n.Register("create_label", b.createLabel)
	n.Register("create_image", b.createImage)
	n.Register("draw_line", b.drawLine)
	n.Register("move_obj", b.moveObj)
	n.Register("rotate_obj", b.rotateObj)
	n.Register("set_style", b.setStyle)
	n.Register("delete_obj", b.deleteObj)
	n.Register("clear_screen", b.clearScreen)
	n.Register("mqtt_publish", b.mqttPublish)
	n.Register("mqtt_subscribe", b.mqttSubscribe)
	n.Register("wifi_connected", b.wifiConnected)
	n.Register("storage_read", b.storageRead)
	n.Register("storage_write", b.storageWrite)
	n.Register("log", b.logMsg)
}

// ReleaseAll frees every buffer the bridge allocated. Called when the
// script runtime stops so a crashed script cannot leak tier memory.
func (b *Bridge) ReleaseAll() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for h, alloc := range b.buffers {
		b.mem.Free(alloc)
		b.handles.Release(h)
		delete(b.buffers, h)
	}
}

// resolve looks a handle up and returns its graphics object, or nil for
// anything stale or never issued.
func (b *Bridge) resolve(h int) graphics.Object {
	obj, _ := b.handles.Get(handles.Handle(h)).(graphics.Object)
	return obj
}

func (b *Bridge) createLabel(args starlark.Tuple) (starlark.Value, error) {
	text, err := argString(args, 0, "create_label")
	if err != nil {
		return nil, err
	}
	x, err := argInt(args, 1, "create_label")
	if err != nil {
		return nil, err
	}
	y, err := argInt(args, 2, "create_label")
	if err != nil {
		return nil, err
	}

	obj, err := b.gfx.CreateLabel(text, x, y)
	if err != nil {
		logging.Warn().Err(err).Msg("create_label failed")
		return starlark.MakeInt(int(handles.Invalid)), nil
	}
	return starlark.MakeInt64(int64(b.handles.Store(obj))), nil
}

// createImage loads the image file into a tier-managed buffer and hands
// the object to the display. The buffer is freed on delete_obj, or by
// ReleaseAll when the runtime stops.
func (b *Bridge) createImage(args starlark.Tuple) (starlark.Value, error) {
	path, err := argString(args, 0, "create_image")
	if err != nil {
		return nil, err
	}
	x, err := argInt(args, 1, "create_image")
	if err != nil {
		return nil, err
	}
	y, err := argInt(args, 2, "create_image")
	if err != nil {
		return nil, err
	}

	fail := starlark.MakeInt(int(handles.Invalid))
	if b.store == nil {
		return fail, nil
	}

	data, err := b.store.ReadFile(path)
	if err != nil {
		logging.Warn().Err(err).Str("path", path).Msg("create_image: read failed")
		return fail, nil
	}

	strategy := b.mem.RecommendStrategy(len(data))
	alloc, err := b.mem.Allocate(len(data), strategy, "script:create_image")
	if err != nil {
		logging.Warn().Err(err).Int("size", len(data)).Msg("create_image: allocation failed")
		return fail, nil
	}
	copy(alloc.Buf, data)

	obj, err := b.gfx.CreateImage(path, x, y)
	if err != nil {
		b.mem.Free(alloc)
		logging.Warn().Err(err).Str("path", path).Msg("create_image failed")
		return fail, nil
	}

	h := b.handles.Store(obj)
	if h == handles.Invalid {
		b.mem.Free(alloc)
		obj.Delete()
		return fail, nil
	}

	b.mu.Lock()
	b.buffers[h] = alloc
	b.mu.Unlock()
	return starlark.MakeInt64(int64(h)), nil
}

func (b *Bridge) drawLine(args starlark.Tuple) (starlark.Value, error) {
	var pts [4]int
	for i := range pts {
		v, err := argInt(args, i, "draw_line")
		if err != nil {
			return nil, err
		}
		pts[i] = v
	}

	obj, err := b.gfx.CreateLine(pts[0], pts[1], pts[2], pts[3])
	if err != nil {
		logging.Warn().Err(err).Msg("draw_line failed")
		return starlark.MakeInt(int(handles.Invalid)), nil
	}
	return starlark.MakeInt64(int64(b.handles.Store(obj))), nil
}

func (b *Bridge) moveObj(args starlark.Tuple) (starlark.Value, error) {
	h, err := argInt(args, 0, "move_obj")
	if err != nil {
		return nil, err
	}
	x, err := argInt(args, 1, "move_obj")
	if err != nil {
		return nil, err
	}
	y, err := argInt(args, 2, "move_obj")
	if err != nil {
		return nil, err
	}

	if obj := b.resolve(h); obj != nil {
		obj.Move(x, y)
	}
	return starlark.None, nil
}

func (b *Bridge) rotateObj(args starlark.Tuple) (starlark.Value, error) {
	h, err := argInt(args, 0, "rotate_obj")
	if err != nil {
		return nil, err
	}
	deg, err := argInt(args, 1, "rotate_obj")
	if err != nil {
		return nil, err
	}

	if obj := b.resolve(h); obj != nil {
		obj.Rotate(deg)
	}
	return starlark.None, nil
}

func (b *Bridge) setStyle(args starlark.Tuple) (starlark.Value, error) {
	h, err := argInt(args, 0, "set_style")
	if err != nil {
		return nil, err
	}
	prop, err := argString(args, 1, "set_style")
	if err != nil {
		return nil, err
	}
	value, err := argString(args, 2, "set_style")
	if err != nil {
		return nil, err
	}

	obj := b.resolve(h)
	if obj == nil {
		return starlark.Bool(false), nil
	}
	if err := obj.SetStyle(prop, value); err != nil {
		return starlark.Bool(false), nil
	}
	return starlark.Bool(true), nil
}

func (b *Bridge) deleteObj(args starlark.Tuple) (starlark.Value, error) {
	h, err := argInt(args, 0, "delete_obj")
	if err != nil {
		return nil, err
	}

	handle := handles.Handle(h)
	if obj := b.resolve(h); obj != nil {
		obj.Delete()
	}
	b.handles.Release(handle)

	b.mu.Lock()
	if alloc, ok := b.buffers[handle]; ok {
		b.mem.Free(alloc)
		delete(b.buffers, handle)
	}
	b.mu.Unlock()
	return starlark.None, nil
}

func (b *Bridge) clearScreen(args starlark.Tuple) (starlark.Value, error) {
	rgb, err := argInt(args, 0, "clear_screen")
	if err != nil {
		return nil, err
	}
	b.gfx.Clear(uint32(rgb))
	return starlark.None, nil
}

func (b *Bridge) mqttPublish(args starlark.Tuple) (starlark.Value, error) {
	topic, err := argString(args, 0, "mqtt_publish")
	if err != nil {
		return nil, err
	}
	payload, err := argString(args, 1, "mqtt_publish")
	if err != nil {
		return nil, err
	}
	retain, err := optBool(args, 2, "mqtt_publish")
	if err != nil {
		return nil, err
	}

	if b.conn == nil {
		return starlark.Bool(false), nil
	}
	return starlark.Bool(b.conn.Publish(topic, payload, retain)), nil
}

func (b *Bridge) mqttSubscribe(args starlark.Tuple) (starlark.Value, error) {
	topic, err := argString(args, 0, "mqtt_subscribe")
	if err != nil {
		return nil, err
	}
	if b.conn == nil {
		return starlark.Bool(false), nil
	}
	return starlark.Bool(b.conn.Subscribe(topic)), nil
}

func (b *Bridge) wifiConnected(_ starlark.Tuple) (starlark.Value, error) {
	if b.conn == nil {
		return starlark.Bool(false), nil
	}
	return starlark.Bool(b.conn.WirelessState() == connectivity.Connected), nil
}

func (b *Bridge) storageRead(args starlark.Tuple) (starlark.Value, error) {
	path, err := argString(args, 0, "storage_read")
	if err != nil {
		return nil, err
	}
	if b.store == nil {
		return starlark.None, nil
	}
	data, err := b.store.ReadFile(path)
	if err != nil {
		return starlark.None, nil
	}
	return starlark.String(data), nil
}

func (b *Bridge) storageWrite(args starlark.Tuple) (starlark.Value, error) {
	path, err := argString(args, 0, "storage_write")
	if err != nil {
		return nil, err
	}
	data, err := argString(args, 1, "storage_write")
	if err != nil {
		return nil, err
	}
	if b.store == nil {
		return starlark.Bool(false), nil
	}
	return starlark.Bool(b.store.WriteFile(path, []byte(data)) == nil), nil
}

func (b *Bridge) logMsg(args starlark.Tuple) (starlark.Value, error) {
	msg, err := argString(args, 0, "log")
	if err != nil {
		return nil, err
	}
	logging.Info().Str("component", "script").Msg(msg)
	return starlark.None, nil
}
