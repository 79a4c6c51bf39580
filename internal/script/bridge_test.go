// Glowd - Supervisor for Scriptable Battery-Powered Display Appliances
// Copyright 2026 Glowstack Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/glowstack/glowd

package script

import (
	"context"
	"testing"

	"go.starlark.net/starlark"

	"github.com/glowstack/glowd/internal/graphics"
	"github.com/glowstack/glowd/internal/handles"
	"github.com/glowstack/glowd/internal/memory"
	"github.com/glowstack/glowd/internal/storage"
)

func newTestBridge(t *testing.T) (*Bridge, *graphics.Headless, *memory.Manager, *storage.DirStore) {
	t.Helper()
	gfx := graphics.NewHeadless()
	reg := handles.NewRegistry(64)
	mem := memory.NewManager(memory.Options{TierACapacity: 64 << 10, TierBCapacity: 1 << 20})
	store := storage.NewDirStore(t.TempDir())
	if err := store.Mount(context.Background()); err != nil {
		t.Fatalf("Mount: %v", err)
	}
	return NewBridge(gfx, reg, nil, store, mem), gfx, mem, store
}

func str(s string) starlark.Value  { return starlark.String(s) }
func num(n int) starlark.Value     { return starlark.MakeInt(n) }
func handleOf(t *testing.T, v starlark.Value) int {
	t.Helper()
	h, err := starlark.AsInt32(v)
	if err != nil {
		t.Fatalf("native returned non-int handle: %v", v)
	}
	return h
}

func TestCreateLabelReturnsHandle(t *testing.T) {
	b, gfx, _, _ := newTestBridge(t)

	v, err := b.createLabel(starlark.Tuple{str("hello"), num(10), num(20)})
	if err != nil {
		t.Fatalf("create_label: %v", err)
	}
	if h := handleOf(t, v); h == int(handles.Invalid) {
		t.Fatal("create_label returned the invalid handle")
	}
	if gfx.Live() != 1 {
		t.Fatalf("live objects = %d, want 1", gfx.Live())
	}
}

func TestMoveAndDeleteThroughHandle(t *testing.T) {
	b, gfx, _, _ := newTestBridge(t)

	v, err := b.createLabel(starlark.Tuple{str("x"), num(0), num(0)})
	if err != nil {
		t.Fatalf("create_label: %v", err)
	}
	h := handleOf(t, v)

	if _, err := b.moveObj(starlark.Tuple{num(h), num(5), num(6)}); err != nil {
		t.Fatalf("move_obj: %v", err)
	}
	if _, err := b.rotateObj(starlark.Tuple{num(h), num(90)}); err != nil {
		t.Fatalf("rotate_obj: %v", err)
	}
	if _, err := b.deleteObj(starlark.Tuple{num(h)}); err != nil {
		t.Fatalf("delete_obj: %v", err)
	}
	if gfx.Live() != 0 {
		t.Fatalf("live objects = %d after delete, want 0", gfx.Live())
	}

	// The handle is dead now; further mutation is a silent no-op.
	if _, err := b.moveObj(starlark.Tuple{num(h), num(1), num(1)}); err != nil {
		t.Fatalf("move_obj on released handle: %v", err)
	}
}

func TestStaleHandleNeverCrashes(t *testing.T) {
	b, _, _, _ := newTestBridge(t)

	for _, h := range []int{-1, 0, 42, 1 << 25} {
		if _, err := b.moveObj(starlark.Tuple{num(h), num(1), num(1)}); err != nil {
			t.Errorf("move_obj(%d): %v", h, err)
		}
		if _, err := b.rotateObj(starlark.Tuple{num(h), num(180)}); err != nil {
			t.Errorf("rotate_obj(%d): %v", h, err)
		}
		if _, err := b.deleteObj(starlark.Tuple{num(h)}); err != nil {
			t.Errorf("delete_obj(%d): %v", h, err)
		}
		v, err := b.setStyle(starlark.Tuple{num(h), str("color"), str("red")})
		if err != nil {
			t.Errorf("set_style(%d): %v", h, err)
		}
		if v != starlark.Bool(false) {
			t.Errorf("set_style(%d) = %v, want False", h, v)
		}
	}
}

func TestSetStyleOnLiveObject(t *testing.T) {
	b, _, _, _ := newTestBridge(t)

	v, _ := b.createLabel(starlark.Tuple{str("x"), num(0), num(0)})
	h := handleOf(t, v)

	ok, err := b.setStyle(starlark.Tuple{num(h), str("text_color"), str("0xFF0000")})
	if err != nil {
		t.Fatalf("set_style: %v", err)
	}
	if ok != starlark.Bool(true) {
		t.Fatalf("set_style = %v, want True", ok)
	}
}

func TestCreateImageTracksBuffer(t *testing.T) {
	b, gfx, mem, store := newTestBridge(t)

	img := make([]byte, 8192)
	if err := store.WriteFile("/logo.bin", img); err != nil {
		t.Fatalf("seed image: %v", err)
	}

	v, err := b.createImage(starlark.Tuple{str("/logo.bin"), num(0), num(0)})
	if err != nil {
		t.Fatalf("create_image: %v", err)
	}
	h := handleOf(t, v)
	if h == int(handles.Invalid) {
		t.Fatal("create_image failed on a readable file")
	}

	stats := mem.Stats()
	if stats.AllocationCount != 1 {
		t.Fatalf("allocations = %d, want 1", stats.AllocationCount)
	}

	if _, err := b.deleteObj(starlark.Tuple{num(h)}); err != nil {
		t.Fatalf("delete_obj: %v", err)
	}
	if got := mem.Stats().AllocationCount; got != 0 {
		t.Fatalf("allocations after delete = %d, want 0", got)
	}
	if gfx.Live() != 0 {
		t.Fatalf("live objects = %d, want 0", gfx.Live())
	}
}

func TestCreateImageMissingFileFails(t *testing.T) {
	b, _, mem, _ := newTestBridge(t)

	v, err := b.createImage(starlark.Tuple{str("/missing.bin"), num(0), num(0)})
	if err != nil {
		t.Fatalf("create_image: %v", err)
	}
	if h := handleOf(t, v); h != int(handles.Invalid) {
		t.Fatalf("create_image = %d, want invalid handle", h)
	}
	if got := mem.Stats().AllocationCount; got != 0 {
		t.Fatalf("allocations leaked on failed create: %d", got)
	}
}

func TestReleaseAllFreesBuffers(t *testing.T) {
	b, _, mem, store := newTestBridge(t)

	for _, name := range []string{"/a.bin", "/b.bin"} {
		if err := store.WriteFile(name, make([]byte, 4096)); err != nil {
			t.Fatalf("seed %s: %v", name, err)
		}
		if _, err := b.createImage(starlark.Tuple{str(name), num(0), num(0)}); err != nil {
			t.Fatalf("create_image %s: %v", name, err)
		}
	}
	if got := mem.Stats().AllocationCount; got != 2 {
		t.Fatalf("allocations = %d, want 2", got)
	}

	b.ReleaseAll()
	if got := mem.Stats().AllocationCount; got != 0 {
		t.Fatalf("allocations after ReleaseAll = %d, want 0", got)
	}
	if b.handles.Len() != 0 {
		t.Fatalf("handles after ReleaseAll = %d, want 0", b.handles.Len())
	}
}

func TestMessagingNativesWithoutSupervisor(t *testing.T) {
	b, _, _, _ := newTestBridge(t)

	v, err := b.mqttPublish(starlark.Tuple{str("t"), str("p")})
	if err != nil {
		t.Fatalf("mqtt_publish: %v", err)
	}
	if v != starlark.Bool(false) {
		t.Fatalf("mqtt_publish = %v without messaging, want False", v)
	}

	v, err = b.wifiConnected(nil)
	if err != nil {
		t.Fatalf("wifi_connected: %v", err)
	}
	if v != starlark.Bool(false) {
		t.Fatalf("wifi_connected = %v without connectivity, want False", v)
	}
}

func TestStorageNatives(t *testing.T) {
	b, _, _, _ := newTestBridge(t)

	ok, err := b.storageWrite(starlark.Tuple{str("/note.txt"), str("persist me")})
	if err != nil {
		t.Fatalf("storage_write: %v", err)
	}
	if ok != starlark.Bool(true) {
		t.Fatalf("storage_write = %v, want True", ok)
	}

	v, err := b.storageRead(starlark.Tuple{str("/note.txt")})
	if err != nil {
		t.Fatalf("storage_read: %v", err)
	}
	if v != starlark.String("persist me") {
		t.Fatalf("storage_read = %v, want the written payload", v)
	}

	v, err = b.storageRead(starlark.Tuple{str("/absent.txt")})
	if err != nil {
		t.Fatalf("storage_read: %v", err)
	}
	if v != starlark.None {
		t.Fatalf("storage_read on missing file = %v, want None", v)
	}
}

// End-to-end: a script drives the full native surface through the
// interpreter rather than direct bridge calls.
func TestScriptDrivesBridge(t *testing.T) {
	b, gfx, _, _ := newTestBridge(t)
	natives := NewNatives()
	b.Install(natives)
	eng := NewStarlarkEngine(natives, 0)

	src := []byte(`
state = {"h": -1}

def setup():
    state["h"] = create_label("boot", 0, 0)

def loop():
    move_obj(state["h"], 10, 10)
    set_style(state["h"], "text_color", "0xFFFFFF")
`)
	if err := eng.Start(context.Background(), "app.star", src); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if gfx.Live() != 1 {
		t.Fatalf("live objects after setup = %d, want 1", gfx.Live())
	}
	if err := eng.Tick(context.Background()); err != nil {
		t.Fatalf("Tick: %v", err)
	}
}
