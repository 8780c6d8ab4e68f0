// Package script drives a machine session from Lua. It is used for
// regression scripts and for scripted input in the headless runner.
package script

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	lua "github.com/yuin/gopher-lua"

	"gochip8/pkg/cpu"
	"gochip8/pkg/machine"
)

// Runner exposes a Machine to Lua scripts through a fixed set of globals:
//
//	step([n])            execute n instructions (default 1)
//	frame([n])           run n frames (default 1), stopping early on exit
//	press(key)           press hex key 0..F
//	release(key)         release hex key 0..F
//	reg(name)            value of V0..VF, I, PC, SP, DT or ST
//	pixel(x, y)          framebuffer pixel, 0 or 1
//	running()            whether the program can still make progress
//	cycles()             instructions executed since the last reset
//	reset()              reload the program
//	dump()               register dump as a string
//	assert_eq(a, b, [msg])
//	print(...)           write to the runner's output
type Runner struct {
	m   *machine.Machine
	out io.Writer
	log *logrus.Entry
}

func New(m *machine.Machine, out io.Writer, logger *logrus.Logger) *Runner {
	if out == nil {
		out = io.Discard
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Runner{
		m:   m,
		out: out,
		log: logger.WithField("component", "script"),
	}
}

// RunFile loads and runs the script at path.
func (r *Runner) RunFile(ctx context.Context, path string) error {
	src, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return r.Run(ctx, path, string(src))
}

// Run executes src in a fresh Lua state. name is used in error messages.
// Cancelling ctx aborts the script.
func (r *Runner) Run(ctx context.Context, name, src string) error {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	defer L.Close()

	if err := openLibs(L); err != nil {
		return err
	}
	if ctx != nil {
		L.SetContext(ctx)
	}
	r.register(L)

	fn, err := L.Load(strings.NewReader(src), name)
	if err != nil {
		return fmt.Errorf("script %s: %w", name, err)
	}
	L.Push(fn)
	if err := L.PCall(0, lua.MultRet, nil); err != nil {
		r.log.WithFields(logrus.Fields{"script": name, "error": err}).Warn("script failed")
		return fmt.Errorf("script %s: %w", name, err)
	}
	r.log.WithField("script", name).Debug("script finished")
	return nil
}

// openLibs loads the pure libraries only; scripts have no file or OS access.
func openLibs(L *lua.LState) error {
	for _, lib := range []struct {
		name string
		fn   lua.LGFunction
	}{
		{lua.BaseLibName, lua.OpenBase},
		{lua.TabLibName, lua.OpenTable},
		{lua.StringLibName, lua.OpenString},
		{lua.MathLibName, lua.OpenMath},
	} {
		if err := L.CallByParam(lua.P{
			Fn:      L.NewFunction(lib.fn),
			NRet:    0,
			Protect: true,
		}, lua.LString(lib.name)); err != nil {
			return err
		}
	}
	return nil
}

func (r *Runner) register(L *lua.LState) {
	funcs := map[string]lua.LGFunction{
		"step":      r.step,
		"frame":     r.frame,
		"press":     r.press,
		"release":   r.release,
		"reg":       r.reg,
		"pixel":     r.pixel,
		"running":   r.running,
		"cycles":    r.cycles,
		"reset":     r.reset,
		"dump":      r.dump,
		"assert_eq": r.assertEq,
		"print":     r.print,
	}
	for name, fn := range funcs {
		L.SetGlobal(name, L.NewFunction(fn))
	}
}

func (r *Runner) step(L *lua.LState) int {
	n := L.OptInt(1, 1)
	for i := 0; i < n; i++ {
		if err := r.m.Step(); err != nil {
			L.RaiseError("step: %v", err)
		}
	}
	return 0
}

func (r *Runner) frame(L *lua.LState) int {
	n := L.OptInt(1, 1)
	for i := 0; i < n && r.m.Running(); i++ {
		if err := r.m.RunFrame(); err != nil {
			L.RaiseError("frame: %v", err)
		}
	}
	return 0
}

func (r *Runner) press(L *lua.LState) int {
	if err := r.m.PressKey(L.CheckInt(1)); err != nil {
		L.ArgError(1, err.Error())
	}
	return 0
}

func (r *Runner) release(L *lua.LState) int {
	if err := r.m.ReleaseKey(L.CheckInt(1)); err != nil {
		L.ArgError(1, err.Error())
	}
	return 0
}

func (r *Runner) reg(L *lua.LState) int {
	reg, err := cpu.ParseRegister(L.CheckString(1))
	if err != nil {
		L.ArgError(1, err.Error())
	}
	v, err := r.m.RegisterState(reg)
	if err != nil {
		L.ArgError(1, err.Error())
	}
	L.Push(lua.LNumber(v))
	return 1
}

func (r *Runner) pixel(L *lua.LState) int {
	L.Push(lua.LNumber(r.m.Pixel(L.CheckInt(1), L.CheckInt(2))))
	return 1
}

func (r *Runner) running(L *lua.LState) int {
	L.Push(lua.LBool(r.m.Running()))
	return 1
}

func (r *Runner) cycles(L *lua.LState) int {
	L.Push(lua.LNumber(r.m.Stats().Cycles))
	return 1
}

func (r *Runner) reset(L *lua.LState) int {
	r.m.Reset()
	return 0
}

func (r *Runner) dump(L *lua.LState) int {
	var sb strings.Builder
	r.m.Dump(&sb)
	L.Push(lua.LString(sb.String()))
	return 1
}

func (r *Runner) assertEq(L *lua.LState) int {
	got := L.CheckAny(1)
	want := L.CheckAny(2)
	msg := L.OptString(3, "assert_eq")
	if !L.Equal(got, want) {
		L.RaiseError("%s: expected %s, got %s", msg, want.String(), got.String())
	}
	return 0
}

func (r *Runner) print(L *lua.LState) int {
	parts := make([]string, L.GetTop())
	for i := range parts {
		parts[i] = L.ToStringMeta(L.Get(i + 1)).String()
	}
	fmt.Fprintln(r.out, strings.Join(parts, "\t"))
	return 0
}
