package main

import (
	"strings"

	"github.com/mit-pdos/go-simplefs/fs"
	"github.com/mit-pdos/go-simplefs/fserr"
)

func components(path string) []string {
	var comps []string
	for _, c := range strings.Split(path, "/") {
		if c != "" && c != "." {
			comps = append(comps, c)
		}
	}
	return comps
}

// walk resolves path from the root and returns a referenced handle. The
// caller releases it.
func walk(v *fs.Volume, comps []string) (*fs.Handle, error) {
	cur, err := v.Root()
	if err != nil {
		return nil, err
	}
	for _, c := range comps {
		next, err := v.Lookup(cur, c)
		cur.Release()
		if err != nil {
			return nil, err
		}
		cur = next
	}
	return cur, nil
}

// walkParent resolves all but the last component of path.
func walkParent(v *fs.Volume, path string) (*fs.Handle, string, error) {
	comps := components(path)
	if len(comps) == 0 {
		return nil, "", fserr.New(fserr.InvalidArg, "%q names the root", path)
	}
	dh, err := walk(v, comps[:len(comps)-1])
	if err != nil {
		return nil, "", err
	}
	return dh, comps[len(comps)-1], nil
}
