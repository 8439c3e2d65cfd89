// Package web holds the page the monitor serves at its root.
package web

import (
	"embed"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
)

// DevEnv names the variable that makes GetAssets serve dist/ from the source
// tree, so the page can be edited without rebuilding.
const DevEnv = "VMSIM_MONITOR_DEV"

//go:embed dist/*
var staticAssets embed.FS

// GetAssets returns the files of the monitor page.
func GetAssets() http.FileSystem {
	if dir, ok := sourceDir(); ok {
		fmt.Fprintf(os.Stderr, "Monitor page served from %s\n", dir)
		return http.Dir(dir)
	}

	dist, err := fs.Sub(staticAssets, "dist")
	if err != nil {
		panic(err)
	}

	return http.FS(dist)
}

func sourceDir() (string, bool) {
	dev, err := strconv.ParseBool(os.Getenv(DevEnv))
	if err != nil || !dev {
		return "", false
	}

	_, file, _, ok := runtime.Caller(0)
	if !ok {
		panic("cannot locate the monitor page sources")
	}

	return filepath.Join(filepath.Dir(file), "dist"), true
}
