// Package github implements the release provider: it fetches release
// metadata from the GitHub API and downloads release assets.
//
// Releases are memoized per client, so one sync run issues at most one
// metadata request per (repo, version) pair no matter how many descriptors
// share a repo. Nothing here is persisted.
package github

// Asset is one downloadable file attached to a release.
type Asset struct {
	Name        string `json:"name"`
	DownloadURL string `json:"browser_download_url"`
	Size        int64  `json:"size"`
}

// Release is fetched release metadata.
type Release struct {
	Tag        string  `json:"tag_name"`
	Prerelease bool    `json:"prerelease"`
	Draft      bool    `json:"draft"`
	Assets     []Asset `json:"assets"`
}
