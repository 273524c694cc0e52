package platform

import (
	"fmt"
	"strings"
)

// familyMap maps distribution names to their canonical family names.
var familyMap = map[string]string{
	"debian":   FamilyDebian,
	"ubuntu":   FamilyDebian,
	"rhel":     FamilyRHEL,
	"centos":   FamilyRHEL,
	"rocky":    FamilyRHEL,
	"fedora":   FamilyFedora,
	"suse":     FamilySUSE,
	"opensuse": FamilySUSE,
	"arch":     FamilyArch,
	"manjaro":  FamilyArch,
	"alpine":   FamilyAlpine,
	"gentoo":   FamilyGentoo,
}

// normalizeOS validates and normalizes a GOOS value.
// ghrel supports darwin and linux only.
func normalizeOS(os string) (string, error) {
	switch os {
	case "darwin", "linux":
		return os, nil
	default:
		return "", fmt.Errorf("unsupported operating system: %s (ghrel supports macOS and Linux only)", os)
	}
}

// NormalizeArch converts GOARCH values to normalized architecture names.
func NormalizeArch(arch string) (string, error) {
	switch arch {
	case "amd64", "x86_64":
		return "amd64", nil
	case "arm64", "aarch64":
		return "arm64", nil
	default:
		return "", fmt.Errorf("unsupported architecture: %s (ghrel supports amd64 and arm64 only)", arch)
	}
}

// OSKeys returns the lowercase filename tokens used to match release
// assets for the given normalized OS.
func OSKeys(os string) []string {
	if os == "darwin" {
		return []string{"darwin", "macos", "mac", "osx"}
	}
	return []string{"linux"}
}

// ArchKeys returns the lowercase filename tokens used to match release
// assets for the given normalized architecture.
func ArchKeys(arch string) []string {
	if arch == "arm64" {
		return []string{"arm64", "aarch64"}
	}
	return []string{"x86_64", "amd64", "x64"}
}

// normalizePlatform converts platform IDs to lowercase for consistency.
func normalizePlatform(platform string) string {
	return strings.ToLower(strings.TrimSpace(platform))
}

// mapFamily maps distribution family strings to canonical family names.
func mapFamily(family string) string {
	normalized := strings.ToLower(strings.TrimSpace(family))
	if canonical, ok := familyMap[normalized]; ok {
		return canonical
	}
	return FamilyUnknown
}
