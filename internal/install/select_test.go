package install

import (
	"errors"
	"testing"

	"github.com/ZebulonRouseFrantzich/ghrel/internal/github"
)

func assets(names ...string) []github.Asset {
	out := make([]github.Asset, len(names))
	for i, name := range names {
		out[i] = github.Asset{Name: name, DownloadURL: "https://example.com/" + name}
	}
	return out
}

func TestSelectAssetByPattern(t *testing.T) {
	release := assets(
		"fd-v10.2.0-x86_64-unknown-linux-gnu.tar.gz",
		"fd-v10.2.0-x86_64-unknown-linux-musl.tar.gz",
		"fd-v10.2.0-aarch64-apple-darwin.tar.gz",
	)

	got, err := SelectAsset(release, "*x86_64*linux-musl*", "linux", "amd64", "v10.2.0")
	if err != nil {
		t.Fatalf("SelectAsset() error: %v", err)
	}
	if got.Name != "fd-v10.2.0-x86_64-unknown-linux-musl.tar.gz" {
		t.Errorf("selected %q", got.Name)
	}
}

func TestSelectAssetPatternIsCaseSensitive(t *testing.T) {
	release := assets("Tool-Linux-x86_64.tar.gz")

	_, err := SelectAsset(release, "*linux*", "linux", "amd64", "v1.0.0")
	var noMatch *NoAssetMatchError
	if !errors.As(err, &noMatch) {
		t.Fatalf("error = %v, want NoAssetMatchError for case mismatch", err)
	}
}

func TestSelectAssetHeuristic(t *testing.T) {
	tests := []struct {
		name   string
		assets []github.Asset
		osName string
		arch   string
		want   string
	}{
		{
			name: "linux amd64 via x86_64",
			assets: assets(
				"tool-1.0-x86_64-linux.tar.gz",
				"tool-1.0-aarch64-linux.tar.gz",
				"tool-1.0-x86_64-darwin.tar.gz",
			),
			osName: "linux",
			arch:   "amd64",
			want:   "tool-1.0-x86_64-linux.tar.gz",
		},
		{
			name: "macos alias",
			assets: assets(
				"tool-1.0-macos-arm64.zip",
				"tool-1.0-linux-arm64.tar.gz",
			),
			osName: "darwin",
			arch:   "arm64",
			want:   "tool-1.0-macos-arm64.zip",
		},
		{
			name: "case-insensitive tokens",
			assets: assets(
				"Tool-1.0-Linux-X86_64.tar.gz",
				"Tool-1.0-Darwin-ARM64.tar.gz",
			),
			osName: "linux",
			arch:   "amd64",
			want:   "Tool-1.0-Linux-X86_64.tar.gz",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SelectAsset(tt.assets, "", tt.osName, tt.arch, "v1.0.0")
			if err != nil {
				t.Fatalf("SelectAsset() error: %v", err)
			}
			if got.Name != tt.want {
				t.Errorf("selected %q, want %q", got.Name, tt.want)
			}
		})
	}
}

func TestSelectAssetNoMatch(t *testing.T) {
	release := assets("tool-1.0-windows-amd64.zip")

	_, err := SelectAsset(release, "", "linux", "amd64", "v1.0.0")
	var noMatch *NoAssetMatchError
	if !errors.As(err, &noMatch) {
		t.Fatalf("error = %v, want NoAssetMatchError", err)
	}
	if len(noMatch.Assets) != 1 {
		t.Errorf("error should list all release assets, got %v", noMatch.Assets)
	}
}

func TestSelectAssetAmbiguous(t *testing.T) {
	release := assets(
		"tool-1.0-linux-amd64-gnu.tar.gz",
		"tool-1.0-linux-amd64-musl.tar.gz",
	)

	_, err := SelectAsset(release, "", "linux", "amd64", "v1.0.0")
	var ambiguous *AmbiguousAssetError
	if !errors.As(err, &ambiguous) {
		t.Fatalf("error = %v, want AmbiguousAssetError", err)
	}
	if len(ambiguous.Matches) != 2 {
		t.Errorf("matches = %v", ambiguous.Matches)
	}
}

func TestSelectAssetMalformedPatternMatchesNothing(t *testing.T) {
	release := assets("tool-1.0-linux-amd64.tar.gz")

	_, err := SelectAsset(release, "[", "linux", "amd64", "v1.0.0")
	var noMatch *NoAssetMatchError
	if !errors.As(err, &noMatch) {
		t.Fatalf("error = %v, want NoAssetMatchError", err)
	}
}
