package assets

import (
	"io/fs"
	"net/http"
	"path"
	"strings"
)

// OutputFS returns a file system holding only the artifacts of the most recent
// build and their precompressed siblings, addressed by their paths relative to
// the working directory. Sources and the metafile do not exist in it.
func (p *Pipeline) OutputFS() http.FileSystem {
	return outputFS{pipeline: p, root: http.Dir(p.config.WorkDir)}
}

type outputFS struct {
	pipeline *Pipeline
	root     http.Dir
}

func (o outputFS) Open(name string) (http.File, error) {
	rel := strings.TrimPrefix(path.Clean("/"+name), "/")
	if !o.pipeline.isOutput(rel) {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
	}
	return o.root.Open(rel)
}

// isOutput reports whether name, slash separated and relative to the working
// directory, was written by the last successful build.
func (p *Pipeline) isOutput(name string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.metadata == nil {
		return false
	}
	if _, ok := p.metadata.Outputs[name]; ok {
		return true
	}
	for _, sibling := range precompressed {
		if base, ok := strings.CutSuffix(name, sibling.ext); ok {
			_, found := p.metadata.Outputs[base]
			return found
		}
	}
	return false
}
