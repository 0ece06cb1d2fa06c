// Package source fetches remote repository snapshots so tutorials can be
// generated for codebases that are not checked out locally.
package source

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/go-github/v68/github"
)

// RepoSpec identifies a GitHub repository snapshot.
type RepoSpec struct {
	Owner string
	Repo  string
	Ref   string // branch, tag, or commit; empty means the default branch
}

// ParseRepoSpec parses "owner/repo" or "owner/repo@ref".
func ParseRepoSpec(s string) (RepoSpec, error) {
	spec := RepoSpec{}

	rest := s
	if at := strings.LastIndex(s, "@"); at >= 0 {
		rest = s[:at]
		spec.Ref = s[at+1:]
		if spec.Ref == "" {
			return RepoSpec{}, fmt.Errorf("invalid repo spec %q: empty ref after @", s)
		}
	}

	parts := strings.Split(rest, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return RepoSpec{}, fmt.Errorf("invalid repo spec %q: expected owner/repo", s)
	}
	spec.Owner = parts[0]
	spec.Repo = parts[1]
	return spec, nil
}

// String returns the canonical owner/repo[@ref] form.
func (s RepoSpec) String() string {
	if s.Ref != "" {
		return fmt.Sprintf("%s/%s@%s", s.Owner, s.Repo, s.Ref)
	}
	return fmt.Sprintf("%s/%s", s.Owner, s.Repo)
}

// Fetcher downloads repository snapshots from GitHub.
type Fetcher struct {
	client *github.Client
	http   *http.Client
}

// NewFetcher creates a Fetcher. token may be empty for public repositories.
func NewFetcher(token string) *Fetcher {
	client := github.NewClient(nil)
	if token != "" {
		client = client.WithAuthToken(token)
	}
	return &Fetcher{client: client, http: &http.Client{}}
}

// Fetch downloads a tarball snapshot of the repository and extracts it under
// a new temporary directory. It returns the path of the extracted repository
// root. The caller owns the directory and should remove it when done.
func (f *Fetcher) Fetch(ctx context.Context, spec RepoSpec) (string, error) {
	opts := &github.RepositoryContentGetOptions{Ref: spec.Ref}
	url, _, err := f.client.Repositories.GetArchiveLink(ctx, spec.Owner, spec.Repo, github.Tarball, opts, 3)
	if err != nil {
		return "", fmt.Errorf("resolving archive link for %s: %w", spec, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url.String(), nil)
	if err != nil {
		return "", fmt.Errorf("creating download request: %w", err)
	}

	resp, err := f.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("downloading %s: %w", spec, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("downloading %s: HTTP %d", spec, resp.StatusCode)
	}

	dir, err := os.MkdirTemp("", "codetutor-"+spec.Repo+"-")
	if err != nil {
		return "", fmt.Errorf("creating temp dir: %w", err)
	}

	root, err := extractTarball(resp.Body, dir)
	if err != nil {
		os.RemoveAll(dir)
		return "", fmt.Errorf("extracting %s: %w", spec, err)
	}
	return root, nil
}

// extractTarball unpacks a gzipped tarball into dir and returns the path of
// the single top-level directory GitHub archives contain.
func extractTarball(r io.Reader, dir string) (string, error) {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return "", fmt.Errorf("reading gzip stream: %w", err)
	}
	defer gz.Close()

	var topLevel string
	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("reading tar entry: %w", err)
		}

		name := filepath.Clean(hdr.Name)
		if name == "." {
			continue
		}
		if strings.HasPrefix(name, "..") {
			return "", fmt.Errorf("tar entry escapes extraction dir: %s", hdr.Name)
		}
		if topLevel == "" {
			topLevel = strings.SplitN(name, string(filepath.Separator), 2)[0]
		}

		target := filepath.Join(dir, name)
		if !strings.HasPrefix(target, filepath.Clean(dir)+string(filepath.Separator)) {
			return "", fmt.Errorf("tar entry escapes extraction dir: %s", hdr.Name)
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0755); err != nil {
				return "", fmt.Errorf("creating dir %s: %w", name, err)
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
				return "", fmt.Errorf("creating dir for %s: %w", name, err)
			}
			out, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, os.FileMode(hdr.Mode)&0777)
			if err != nil {
				return "", fmt.Errorf("creating file %s: %w", name, err)
			}
			if _, err := io.Copy(out, tr); err != nil {
				out.Close()
				return "", fmt.Errorf("writing file %s: %w", name, err)
			}
			out.Close()
		}
		// Symlinks and other entry types are skipped: tutorial scanning
		// only needs regular source files.
	}

	if topLevel == "" {
		return "", fmt.Errorf("archive contained no entries")
	}
	return filepath.Join(dir, topLevel), nil
}
