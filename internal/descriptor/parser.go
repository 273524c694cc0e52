package descriptor

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	lua "github.com/yuin/gopher-lua"

	"github.com/ZebulonRouseFrantzich/ghrel/internal/platform"
)

// LoadError is a descriptor load failure. Any LoadError fails the whole
// batch; nothing is synced with a half-valid descriptor set.
type LoadError struct {
	Path    string
	Message string
	Detail  string
}

func (e *LoadError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s: %s", e.Path, e.Message, e.Detail)
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// Loader loads descriptor files with platform information injected.
type Loader struct {
	info *platform.Info
}

// NewLoader creates a descriptor loader. info is exposed to descriptors as
// the read-only platform table; a nil info omits the table.
func NewLoader(info *platform.Info) *Loader {
	return &Loader{info: info}
}

// ListNames returns the descriptor names (file stems) present in dir
// without executing any descriptor code. A missing directory yields an
// empty set.
func ListNames(dir string) (map[string]bool, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]bool{}, nil
		}
		return nil, fmt.Errorf("read packages directory: %w", err)
	}

	names := make(map[string]bool)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".lua") {
			continue
		}
		names[strings.TrimSuffix(entry.Name(), ".lua")] = true
	}
	return names, nil
}

// LoadAll loads and validates every *.lua descriptor in dir, sorted by
// name. The first failure aborts the batch; descriptors loaded so far are
// closed. Descriptor names are file stems, so duplicates cannot occur
// within one directory, but the invariant is still checked.
func (l *Loader) LoadAll(dir string) ([]*Descriptor, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read packages directory: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".lua") {
			continue
		}
		files = append(files, entry.Name())
	}
	sort.Strings(files)

	seen := make(map[string]bool, len(files))
	descriptors := make([]*Descriptor, 0, len(files))
	for _, file := range files {
		path := filepath.Join(dir, file)
		desc, err := l.loadOne(path, l.info)
		if err != nil {
			CloseAll(descriptors)
			return nil, err
		}
		if seen[desc.Name] {
			desc.Close()
			CloseAll(descriptors)
			return nil, &LoadError{Path: path, Message: fmt.Sprintf("duplicate package name %q", desc.Name)}
		}
		seen[desc.Name] = true
		descriptors = append(descriptors, desc)
	}

	return descriptors, nil
}

// CloseAll closes every descriptor's Lua state.
func CloseAll(descriptors []*Descriptor) {
	for _, d := range descriptors {
		d.Close()
	}
}

// loadOne executes a descriptor file in a fresh sandboxed VM and extracts
// its fields. The VM stays alive on the returned descriptor so hooks can
// run later in the same environment they were defined in.
func (l *Loader) loadOne(path string, info *platform.Info) (*Descriptor, error) {
	L := lua.NewState()
	sandboxLuaVM(L)

	if info != nil {
		platform.InjectPlatformTable(L, info)
	}

	runner := &commandRunner{}
	runner.inject(L)

	if err := L.DoFile(path); err != nil {
		L.Close()
		return nil, &LoadError{Path: path, Message: "Lua error", Detail: err.Error()}
	}

	desc := &Descriptor{
		Name:    strings.TrimSuffix(filepath.Base(path), ".lua"),
		Archive: true,
		Path:    path,
	}

	var fieldErr error
	getString := func(name string, dest *string) {
		if fieldErr != nil {
			return
		}
		value := L.GetGlobal(name)
		switch value.Type() {
		case lua.LTNil:
		case lua.LTString:
			*dest = string(value.(lua.LString))
		default:
			fieldErr = &LoadError{Path: path, Message: fmt.Sprintf("invalid type for %q", name), Detail: fmt.Sprintf("expected string, got %s", value.Type())}
		}
	}

	getString("repo", &desc.Repo)
	getString("binary", &desc.Binary)
	getString("install_as", &desc.InstallAs)
	getString("asset", &desc.AssetPattern)
	getString("version", &desc.VersionPin)
	getString("signature", &desc.SignaturePattern)
	getString("gpg_key", &desc.GPGKey)
	if fieldErr != nil {
		L.Close()
		return nil, fieldErr
	}

	if value := L.GetGlobal("archive"); value.Type() != lua.LTNil {
		b, ok := value.(lua.LBool)
		if !ok {
			L.Close()
			return nil, &LoadError{Path: path, Message: "invalid type for \"archive\"", Detail: fmt.Sprintf("expected boolean, got %s", value.Type())}
		}
		desc.Archive = bool(b)
	}

	if desc.Repo == "" {
		L.Close()
		return nil, &LoadError{Path: path, Message: "missing required field 'repo'"}
	}

	hooks := &luaHooks{vm: L, runner: runner}
	var hookErr error
	getHook := func(name string, dest **lua.LFunction) {
		if hookErr != nil {
			return
		}
		value := L.GetGlobal(name)
		switch value.Type() {
		case lua.LTNil:
		case lua.LTFunction:
			*dest = value.(*lua.LFunction)
		default:
			hookErr = &LoadError{Path: path, Message: fmt.Sprintf("%q must be a function", name), Detail: fmt.Sprintf("got %s", value.Type())}
		}
	}
	getHook("post_install", &hooks.postInstall)
	getHook("verify", &hooks.verify)
	if hookErr != nil {
		L.Close()
		return nil, hookErr
	}
	desc.hooks = hooks

	if err := desc.validate(); err != nil {
		desc.Close()
		return nil, &LoadError{Path: path, Message: err.Error()}
	}

	return desc, nil
}
