package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gobwas/glob"
)

// Environment variable helpers
func getEnvString(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		return val == "true" || val == "1" || val == "yes"
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

// fileMatcher decides which paths found under a directory are request
// files. Files named explicitly on the command line are always taken.
type fileMatcher struct {
	extensions []string
	include    []glob.Glob
	exclude    []glob.Glob
}

func newFileMatcher(extensions, include, exclude []string) (*fileMatcher, error) {
	m := &fileMatcher{extensions: extensions}
	var err error
	if m.include, err = compileGlobs(include); err != nil {
		return nil, err
	}
	if m.exclude, err = compileGlobs(exclude); err != nil {
		return nil, err
	}
	return m, nil
}

func compileGlobs(patterns []string) ([]glob.Glob, error) {
	globs := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(p, '/')
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", p, err)
		}
		globs = append(globs, g)
	}
	return globs, nil
}

func (m *fileMatcher) hasExtension(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range m.extensions {
		if ext == strings.ToLower(e) {
			return true
		}
	}
	return false
}

func (m *fileMatcher) match(path string) bool {
	if !m.hasExtension(path) {
		return false
	}
	slashed := filepath.ToSlash(path)
	for _, g := range m.exclude {
		if g.Match(slashed) {
			return false
		}
	}
	if len(m.include) == 0 {
		return true
	}
	for _, g := range m.include {
		if g.Match(slashed) {
			return true
		}
	}
	return false
}

func collectFiles(args []string) ([]string, error) {
	m, err := newFileMatcher(cfg.Extensions, cfg.Include, cfg.Exclude)
	if err != nil {
		return nil, withExitCode(ExitConfigError, err)
	}
	return m.collect(args)
}

func (m *fileMatcher) collect(args []string) ([]string, error) {
	var files []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, withExitCode(ExitUsageError, fmt.Errorf("cannot access %s: %w", arg, err))
		}

		if !info.IsDir() {
			files = append(files, arg)
			continue
		}
		err = filepath.Walk(arg, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if !info.IsDir() && m.match(path) {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	if len(files) == 0 {
		return nil, withExitCode(ExitUsageError, fmt.Errorf("no request files found (extensions: %s)", strings.Join(m.extensions, ", ")))
	}
	return files, nil
}
