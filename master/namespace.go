package master

import (
	"sort"
	"strings"

	gopath "path"
)

// Ls implements gfs.MasterHandle: direct children of prefix only,
// mirroring the "ls" semantics (not "ls -R") of
// original_source/src/master.rs's MasterProcess::ls.
func (m *Master) Ls(prefix string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []string
	for path := range m.files {
		if gopath.Dir(path) == prefix {
			out = append(out, path)
		}
	}
	sort.Strings(out)
	return out, nil
}

// LsTree implements gfs.MasterHandle: every path with prefix as a
// string prefix, matching original_source/src/master.rs's ls_tree.
func (m *Master) LsTree(prefix string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []string
	for path := range m.files {
		if strings.HasPrefix(path, prefix) {
			out = append(out, path)
		}
	}
	sort.Strings(out)
	return out, nil
}
