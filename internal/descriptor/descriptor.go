// Package descriptor loads and validates package descriptor files.
//
// A descriptor is a Lua file under <config>/packages/; its stem is the
// package name. Descriptors run in a sandboxed VM (no io, no module
// loading) with a read-only platform table injected, and may define two
// hook functions, post_install and verify. Hooks are the one deliberate
// trust boundary: they receive a run() helper that executes commands on the
// user's machine with the user's privileges.
//
// Loading is all-or-nothing: any syntax error or invalid field in any file
// fails the whole batch before ghrel touches the network or filesystem.
package descriptor

import (
	"fmt"
	"path"
	"strings"
)

// HookContext is the information passed to lifecycle hooks.
type HookContext struct {
	Version      string
	BinaryName   string
	BinaryPath   string
	Checksum     string
	Repo         string
	BinDir       string
	ExtractedDir string // empty for raw assets and for the verify hook
}

// Descriptor is one package's declared intent, immutable after load.
type Descriptor struct {
	// Name is the descriptor file stem and the unique state key.
	Name string
	// Repo is the GitHub repository in owner/repo form.
	Repo string
	// Binary is the executable filename or slash path inside the archive.
	// Empty for raw (non-archive) assets.
	Binary string
	// InstallAs overrides the installed binary name. Empty means derive:
	// the binary's base name for archives, the asset name for raw assets.
	InstallAs string
	// AssetPattern is an optional glob matched against asset filenames.
	AssetPattern string
	// VersionPin is an optional exact release tag.
	VersionPin string
	// Archive reports whether the asset is an archive (default true).
	Archive bool
	// SignaturePattern is an optional glob for a detached-signature asset.
	SignaturePattern string
	// GPGKey is the armored public key filename under <config>/keys/,
	// required when SignaturePattern is set.
	GPGKey string
	// Path is the absolute path of the descriptor file.
	Path string

	hooks *luaHooks
}

// InstallName returns the name the binary is installed under, given the
// selected asset's filename.
func (d *Descriptor) InstallName(assetName string) string {
	if d.InstallAs != "" {
		return d.InstallAs
	}
	if !d.Archive {
		return path.Base(assetName)
	}
	return path.Base(d.Binary)
}

// HasPostInstall reports whether the descriptor declares a post_install hook.
func (d *Descriptor) HasPostInstall() bool {
	return d.hooks != nil && d.hooks.postInstall != nil
}

// HasVerify reports whether the descriptor declares a verify hook.
func (d *Descriptor) HasVerify() bool {
	return d.hooks != nil && d.hooks.verify != nil
}

// PostInstall runs the post_install hook. Calling it without a declared
// hook is a no-op.
func (d *Descriptor) PostInstall(hctx HookContext) error {
	if !d.HasPostInstall() {
		return nil
	}
	return d.hooks.call(d.hooks.postInstall, hctx, true)
}

// Verify runs the verify hook. Calling it without a declared hook is a
// no-op; the reconciler decides what an absent hook means.
func (d *Descriptor) Verify(hctx HookContext) error {
	if !d.HasVerify() {
		return nil
	}
	return d.hooks.call(d.hooks.verify, hctx, false)
}

// Close releases the descriptor's Lua state. Descriptors must be closed
// when the run finishes; hooks cannot be invoked afterwards.
func (d *Descriptor) Close() {
	if d.hooks != nil {
		d.hooks.close()
		d.hooks = nil
	}
}

// validate checks descriptor fields after extraction from Lua.
func (d *Descriptor) validate() error {
	owner, repo, ok := strings.Cut(d.Repo, "/")
	if !ok || owner == "" || repo == "" {
		return fmt.Errorf("invalid repo %q: expected format owner/repo", d.Repo)
	}

	if d.Archive && d.Binary == "" {
		return fmt.Errorf("missing required field 'binary' (set archive = false for raw assets)")
	}

	if d.InstallAs != "" && strings.ContainsAny(d.InstallAs, "/\\") {
		return fmt.Errorf("invalid install_as %q: must be a filename, not a path", d.InstallAs)
	}

	if d.SignaturePattern != "" && d.GPGKey == "" {
		return fmt.Errorf("'signature' requires 'gpg_key' to verify against")
	}
	if d.GPGKey == "" && d.SignaturePattern == "" {
		return nil
	}
	if d.GPGKey != "" && d.SignaturePattern == "" {
		return fmt.Errorf("'gpg_key' requires 'signature' to select the signature asset")
	}

	return nil
}
