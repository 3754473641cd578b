package api

import (
	"net/http"
	"os"
	"path"
	"strings"

	"podcastgo/pkg/export"
)

// outputFileSystem serves finished mixes only: directories, dotfiles,
// underscore-prefixed transients and partial exports are reported missing.
type outputFileSystem struct {
	root http.FileSystem
}

// Open opens the named file unless it is hidden.
func (s *outputFileSystem) Open(name string) (http.File, error) {
	base := path.Base(name)
	if strings.HasPrefix(base, ".") || strings.HasPrefix(base, "_") || strings.HasSuffix(base, export.PartialSuffix) {
		return nil, os.ErrNotExist
	}

	f, err := s.root.Open(name)
	if err != nil {
		return nil, err
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if info.IsDir() {
		f.Close()
		return nil, os.ErrNotExist
	}
	return f, nil
}
