package main

import (
	"github.com/spf13/afero"

	"gregoryjjb/grove/mixing"
)

// ReadValues loads a puzzle input through fsys.
func ReadValues(fsys afero.Fs, path string) ([]int64, error) {
	f, err := fsys.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return mixing.ParseValues(f)
}
