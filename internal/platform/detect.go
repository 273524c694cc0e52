package platform

import (
	"context"
	"fmt"
	"runtime"

	"github.com/shirou/gopsutil/v4/host"
)

// RealDetector implements Detector using actual platform detection.
type RealDetector struct{}

// NewDetector creates a new platform detector.
func NewDetector() Detector {
	return &RealDetector{}
}

// Detect performs platform detection and returns platform information.
// It uses runtime.GOOS and runtime.GOARCH for OS and architecture, and
// gopsutil for Linux distribution details.
//
// ghrel supports macOS and Linux on amd64 and arm64; anything else is an
// error. If gopsutil fails to detect the Linux distribution, distro fields
// stay empty and detection still succeeds: asset matching only needs
// OS/arch, distro details are informational for descriptors.
func (d *RealDetector) Detect(ctx context.Context) (*Info, error) {
	os, err := normalizeOS(runtime.GOOS)
	if err != nil {
		return nil, err
	}
	arch, err := NormalizeArch(runtime.GOARCH)
	if err != nil {
		return nil, err
	}

	info := &Info{
		OS:      os,
		Arch:    arch,
		ArchRaw: runtime.GOARCH,
	}

	if os == "linux" {
		platform, family, version, err := host.PlatformInformationWithContext(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("platform detection cancelled: %w", ctx.Err())
			}
			// Graceful fallback: OS/arch alone is enough for syncing.
			return info, nil
		}

		platform = normalizePlatform(platform)
		family = mapFamily(family)
		version = normalizePlatform(version)

		if platform != "" {
			info.Platform = platform
			info.Family = family
			info.Version = version
		}
	}

	return info, nil
}
