// Glowd - Supervisor for Scriptable Battery-Powered Display Appliances
// Copyright 2026 Glowstack Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/glowstack/glowd

package script

import (
	"fmt"

	"go.starlark.net/starlark"
)

// NativeFunc is the uniform signature of every sandbox-exposed native:
// a positional argument list in, a value or error out. Natives are
// registered by name rather than dispatched through raw function
// references so the sandbox boundary stays memory-safe.
type NativeFunc func(args starlark.Tuple) (starlark.Value, error)

// Natives maps names to bridge functions and materializes them as
// Starlark builtins.
type Natives struct {
	fns map[string]NativeFunc
}

// NewNatives creates an empty registry.
func NewNatives() *Natives {
	return &Natives{fns: make(map[string]NativeFunc)}
}

// Register adds a native under name, replacing any previous entry.
func (n *Natives) Register(name string, fn NativeFunc) {
	n.fns[name] = fn
}

// Declarations returns the registry as predeclared Starlark globals.
func (n *Natives) Declarations() starlark.StringDict {
	decls := make(starlark.StringDict, len(n.fns))
	for name, fn := range n.fns {
		fn := fn
		decls[name] = starlark.NewBuiltin(name, func(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
			if len(kwargs) > 0 {
				return nil, fmt.Errorf("%s: keyword arguments are not supported", b.Name())
			}
			return fn(args)
		})
	}
	return decls
}

// Argument helpers. Natives never crash on bad arguments; they return
// errors that surface as script exceptions.

func argString(args starlark.Tuple, i int, name string) (string, error) {
	if i >= len(args) {
		return "", fmt.Errorf("%s: missing argument %d", name, i)
	}
	s, ok := starlark.AsString(args[i])
	if !ok {
		return "", fmt.Errorf("%s: argument %d must be a string, got %s", name, i, args[i].Type())
	}
	return s, nil
}

func argInt(args starlark.Tuple, i int, name string) (int, error) {
	if i >= len(args) {
		return 0, fmt.Errorf("%s: missing argument %d", name, i)
	}
	v, err := starlark.AsInt32(args[i])
	if err != nil {
		return 0, fmt.Errorf("%s: argument %d must be an int: %w", name, i, err)
	}
	return v, nil
}

func argBool(args starlark.Tuple, i int, name string) (bool, error) {
	if i >= len(args) {
		return false, fmt.Errorf("%s: missing argument %d", name, i)
	}
	b, ok := args[i].(starlark.Bool)
	if !ok {
		return false, fmt.Errorf("%s: argument %d must be a bool, got %s", name, i, args[i].Type())
	}
	return bool(b), nil
}

// optBool reads an optional trailing bool argument, defaulting to false.
func optBool(args starlark.Tuple, i int, name string) (bool, error) {
	if i >= len(args) {
		return false, nil
	}
	return argBool(args, i, name)
}
