package install

import (
	"path"
	"strings"

	"github.com/ZebulonRouseFrantzich/ghrel/internal/github"
	"github.com/ZebulonRouseFrantzich/ghrel/internal/platform"
)

// SelectAsset picks exactly one release asset. With a pattern, asset names
// are glob-matched (shell-style, case-sensitive). Without one, the name
// must contain both an OS token and an architecture token for the detected
// platform. Zero or multiple matches are errors; ambiguity is never
// auto-resolved.
func SelectAsset(assets []github.Asset, pattern, osName, arch, tag string) (github.Asset, error) {
	var matches []github.Asset
	if pattern != "" {
		for _, asset := range assets {
			// path.Match only errors on malformed patterns, which
			// descriptor validation cannot catch cheaply; a bad
			// pattern simply matches nothing here.
			if ok, _ := path.Match(pattern, asset.Name); ok {
				matches = append(matches, asset)
			}
		}
	} else {
		osKeys := platform.OSKeys(osName)
		archKeys := platform.ArchKeys(arch)
		for _, asset := range assets {
			name := strings.ToLower(asset.Name)
			if containsAny(name, osKeys) && containsAny(name, archKeys) {
				matches = append(matches, asset)
			}
		}
	}

	switch len(matches) {
	case 0:
		return github.Asset{}, &NoAssetMatchError{Pattern: pattern, Tag: tag, Assets: assetNames(assets)}
	case 1:
		return matches[0], nil
	default:
		return github.Asset{}, &AmbiguousAssetError{Pattern: pattern, Tag: tag, Matches: assetNames(matches)}
	}
}

func containsAny(name string, keys []string) bool {
	for _, key := range keys {
		if strings.Contains(name, key) {
			return true
		}
	}
	return false
}

func assetNames(assets []github.Asset) []string {
	names := make([]string, len(assets))
	for i, asset := range assets {
		names[i] = asset.Name
	}
	return names
}
