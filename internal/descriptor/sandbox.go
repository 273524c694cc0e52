package descriptor

import (
	"bytes"
	"context"
	"os/exec"
	"strings"

	lua "github.com/yuin/gopher-lua"
)

// sandboxLuaVM configures a Lua VM to run in a restricted sandbox.
// This disables functions that could:
//   - execute system commands behind ghrel's back (os.execute)
//   - access the filesystem (io.open, io.popen)
//   - load external code (require, dofile, loadfile)
//
// Safe modules like string, table, and math are preserved. Hooks that need
// to run commands use the injected run() helper, which keeps command
// execution on one visible, documented path.
func sandboxLuaVM(L *lua.LState) {
	L.SetGlobal("os", lua.LNil)
	L.SetGlobal("io", lua.LNil)
	L.SetGlobal("require", lua.LNil)
	L.SetGlobal("dofile", lua.LNil)
	L.SetGlobal("loadfile", lua.LNil)
	L.SetGlobal("load", lua.LNil)
	L.SetGlobal("loadstring", lua.LNil)
	L.SetGlobal("debug", lua.LNil)
}

// commandRunner binds the run() Lua helper to the Go context of the hook
// currently executing.
type commandRunner struct {
	ctx context.Context
}

// inject registers run(cmd, args...) in the Lua state. The command is
// resolved through the process search path, never an absolute path baked in
// by ghrel, so verify hooks catch PATH misconfiguration. run returns the
// command's combined output and raises a Lua error on non-zero exit.
func (r *commandRunner) inject(L *lua.LState) {
	L.SetGlobal("run", L.NewFunction(func(L *lua.LState) int {
		name := L.CheckString(1)
		args := make([]string, 0, L.GetTop()-1)
		for i := 2; i <= L.GetTop(); i++ {
			args = append(args, L.CheckString(i))
		}

		ctx := r.ctx
		if ctx == nil {
			ctx = context.Background()
		}

		cmd := exec.CommandContext(ctx, name, args...)
		var output bytes.Buffer
		cmd.Stdout = &output
		cmd.Stderr = &output

		if err := cmd.Run(); err != nil {
			msg := strings.TrimSpace(output.String())
			if msg != "" {
				L.RaiseError("command %s failed: %v: %s", name, err, msg)
			} else {
				L.RaiseError("command %s failed: %v", name, err)
			}
			return 0
		}

		L.Push(lua.LString(output.String()))
		return 1
	}))
}

// luaHooks owns the Lua state kept alive for hook invocation after load.
type luaHooks struct {
	vm          *lua.LState
	runner      *commandRunner
	postInstall *lua.LFunction
	verify      *lua.LFunction
}

// call invokes a hook function with the context table built from hctx.
func (h *luaHooks) call(fn *lua.LFunction, hctx HookContext, includeExtracted bool) error {
	h.runner.ctx = context.Background()

	tbl := h.vm.NewTable()
	h.vm.SetField(tbl, "version", lua.LString(hctx.Version))
	h.vm.SetField(tbl, "binary_name", lua.LString(hctx.BinaryName))
	h.vm.SetField(tbl, "binary_path", lua.LString(hctx.BinaryPath))
	h.vm.SetField(tbl, "checksum", lua.LString(hctx.Checksum))
	h.vm.SetField(tbl, "repo", lua.LString(hctx.Repo))
	h.vm.SetField(tbl, "bin_dir", lua.LString(hctx.BinDir))
	if includeExtracted {
		if hctx.ExtractedDir != "" {
			h.vm.SetField(tbl, "extracted_dir", lua.LString(hctx.ExtractedDir))
		} else {
			h.vm.SetField(tbl, "extracted_dir", lua.LNil)
		}
	}

	return h.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    0,
		Protect: true,
	}, tbl)
}

func (h *luaHooks) close() {
	if h.vm != nil {
		h.vm.Close()
		h.vm = nil
	}
}
