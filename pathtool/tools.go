// Package pathtool some path-related methods
package pathtool

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// FileInfo a file found by SearchFilesByTime
type FileInfo struct {
	ModTime time.Time
	Path    string
}

// IsExist file is exist or not
func IsExist(p string) bool {
	if p == "" {
		return false
	}
	_, err := os.Stat(p)
	return err == nil || os.IsExist(err)
}

// GetExecDir get current file path
func GetExecDir() string {
	a, _ := os.Executable()
	execdir := filepath.Dir(a)
	if strings.Contains(execdir, "go-build") {
		execdir, _ = filepath.Abs(".")
	}
	return execdir
}

// JoinPathFromHere 从程序执行目录开始拼接路径
func JoinPathFromHere(path ...string) string {
	s := []string{GetExecDir()}
	s = append(s, path...)
	sp := filepath.Join(s...)
	p, err := filepath.Abs(sp)
	if err != nil {
		return sp
	}
	return p
}

// SearchFilesByTime returns the regular files in dir whose names start with prefix,
// oldest first.
func SearchFilesByTime(dir, prefix string) ([]*FileInfo, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	files := make([]*FileInfo, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), prefix) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		files = append(files, &FileInfo{
			Path:    filepath.Join(dir, e.Name()),
			ModTime: info.ModTime(),
		})
	}
	sort.Slice(files, func(i, j int) bool {
		return files[i].ModTime.Before(files[j].ModTime)
	})
	return files, nil
}

// MakeRuntimeDirs creates and returns the full paths for the configuration, log, and data directories.
// If the rootpath is ".", it uses the directories relative to the current executable's location.
// If the rootpath is "..", it uses the directories relative to the parent directory of the current executable's location.
// For any other rootpath, it creates the directories under the specified rootpath.
func MakeRuntimeDirs(rootpath string) (string, string, string) {
	var sconf, slog, sdata string
	switch rootpath {
	case ".":
		sconf = JoinPathFromHere("conf")
		slog = JoinPathFromHere("log")
		sdata = JoinPathFromHere("data")
	case "..":
		sconf = JoinPathFromHere("..", "conf")
		slog = JoinPathFromHere("..", "log")
		sdata = JoinPathFromHere("..", "data")
	default:
		sconf = filepath.Join(rootpath, "conf")
		slog = filepath.Join(rootpath, "log")
		sdata = filepath.Join(rootpath, "data")
	}
	os.MkdirAll(sconf, 0o775)
	os.MkdirAll(slog, 0o775)
	os.MkdirAll(sdata, 0o775)
	return sconf, slog, sdata
}
