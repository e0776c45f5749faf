// Package cli implements the one-shot set/get/rm command surface described
// in the specification's external interfaces: each process invocation runs
// exactly one subcommand and exits.
package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/nandanvikas/kvs/internal/engine"
	"github.com/nandanvikas/kvs/internal/kverrors"
)

const usage = "Usage: kvs set <KEY> <VALUE> | kvs get <KEY> | kvs rm <KEY>"

// Handler dispatches a single subcommand against an open Engine.
type Handler struct {
	engine *engine.Engine
	out    io.Writer
	errOut io.Writer
}

// NewHandler returns a Handler writing normal output to out and usage/error
// output to errOut.
func NewHandler(e *engine.Engine, out, errOut io.Writer) *Handler {
	return &Handler{engine: e, out: out, errOut: errOut}
}

// Run dispatches args (normally os.Args[1:]) and returns the process exit
// code: 0 on success per spec (including a missing key on get), nonzero
// for usage errors, a missing key on rm, and any other engine error.
func (h *Handler) Run(args []string) int {
	if len(args) == 0 {
		fmt.Fprintln(h.errOut, usage)
		return 1
	}

	switch args[0] {
	case "set":
		return h.runSet(args[1:])
	case "get":
		return h.runGet(args[1:])
	case "rm":
		return h.runRemove(args[1:])
	default:
		fmt.Fprintf(h.errOut, "unknown subcommand: %s\n", args[0])
		fmt.Fprintln(h.errOut, usage)
		return 1
	}
}

func (h *Handler) runSet(args []string) int {
	if len(args) != 2 {
		fmt.Fprintln(h.errOut, "usage: kvs set <KEY> <VALUE>")
		return 1
	}

	key, value := args[0], args[1]
	if err := h.engine.Set(key, value); err != nil {
		slog.Error("cli: set failed", "key", key, "error", err)
		fmt.Fprintln(h.errOut, err)
		return 1
	}
	return 0
}

func (h *Handler) runGet(args []string) int {
	if len(args) != 1 {
		fmt.Fprintln(h.errOut, "usage: kvs get <KEY>")
		return 1
	}

	key := args[0]
	value, ok, err := h.engine.Get(key)
	if err != nil {
		slog.Error("cli: get failed", "key", key, "error", err)
		fmt.Fprintln(h.errOut, err)
		return 1
	}
	if !ok {
		fmt.Fprintln(h.out, "Key not found")
		return 0
	}

	fmt.Fprintln(h.out, value)
	return 0
}

func (h *Handler) runRemove(args []string) int {
	if len(args) != 1 {
		fmt.Fprintln(h.errOut, "usage: kvs rm <KEY>")
		return 1
	}

	key := args[0]
	err := h.engine.Remove(key)
	if err == nil {
		return 0
	}

	var notFound *kverrors.RemoveNonexistentKey
	if errors.As(err, &notFound) {
		fmt.Fprintln(h.out, "Key not found")
		return 1
	}

	slog.Error("cli: rm failed", "key", key, "error", err)
	fmt.Fprintln(h.errOut, err)
	return 1
}
