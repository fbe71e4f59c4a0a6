package model

import (
	"os"
	"path/filepath"
)

// Resolver finds a model artifact in an ordered list of directories. First match wins.
type Resolver struct {
	dirs []string
}

func NewResolver(dirs []string) *Resolver {
	return &Resolver{
		dirs: dirs,
	}
}

// DefaultSearchPaths mirrors where deployments have historically placed the weights.
// modelDir, if not empty, is searched first.
func DefaultSearchPaths(modelDir string) []string {
	dirs := []string{}
	if modelDir != "" {
		dirs = append(dirs, modelDir)
	}
	if exe, err := os.Executable(); err == nil {
		dirs = append(dirs, filepath.Dir(exe))
	}
	if cwd, err := os.Getwd(); err == nil {
		dirs = append(dirs, cwd)
	}
	dirs = append(dirs, "..", "/app", "/app/server")

	seen := map[string]bool{}
	unique := make([]string, 0, len(dirs))
	for _, d := range dirs {
		clean := filepath.Clean(d)
		if !seen[clean] {
			seen[clean] = true
			unique = append(unique, clean)
		}
	}
	return unique
}

// Candidates returns the full paths that Resolve will try, in order
func (r *Resolver) Candidates(artifact string) []string {
	paths := make([]string, 0, len(r.dirs))
	for _, d := range r.dirs {
		paths = append(paths, filepath.Join(d, artifact))
	}
	return paths
}

// Resolve returns the first candidate that is a readable regular file.
// If there is none, the error is an *ArtifactNotFoundError.
func (r *Resolver) Resolve(key Key, artifact string) (string, error) {
	attempted := r.Candidates(artifact)
	for _, path := range attempted {
		if readable(path) {
			return path, nil
		}
	}
	return "", &ArtifactNotFoundError{
		Key:       key,
		Artifact:  artifact,
		Attempted: attempted,
	}
}

func readable(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()
	st, err := f.Stat()
	if err != nil {
		return false
	}
	return st.Mode().IsRegular()
}
