package env

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

const (
	// PublicEnvFile holds the shared environments of a request collection.
	PublicEnvFile = "http-client.env.json"
	// PrivateEnvFile holds per-user values layered over PublicEnvFile.
	PrivateEnvFile = "http-client.private.env.json"
)

// envFileSchema describes both environment files: an object of named
// environments, each an object of variables. Nested objects such as client
// SSL settings are accepted and ignored.
const envFileSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "additionalProperties": {
    "type": "object",
    "additionalProperties": {
      "type": ["string", "number", "boolean", "object", "null"]
    }
  }
}`

type Environment struct {
	Name      string
	Variables map[string]string
}

// EnvironmentFiles is the set of environments declared in a directory.
type EnvironmentFiles map[string]map[string]string

// Names returns the environment names in sorted order.
func (f EnvironmentFiles) Names() []string {
	names := make([]string, 0, len(f))
	for name := range f {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LoadEnvironmentFiles reads PublicEnvFile from dir and layers
// PrivateEnvFile over it variable by variable. Either file may be missing.
func LoadEnvironmentFiles(dir string) (EnvironmentFiles, error) {
	result := make(EnvironmentFiles)
	for _, name := range []string{PublicEnvFile, PrivateEnvFile} {
		envs, err := readEnvFile(filepath.Join(dir, name))
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, err
		}
		for envName, vars := range envs {
			if result[envName] == nil {
				result[envName] = make(map[string]string)
			}
			for k, v := range vars {
				result[envName][k] = v
			}
		}
	}
	return result, nil
}

// LoadEnvironment returns the environment called name from dir.
func LoadEnvironment(dir, name string) (*Environment, error) {
	files, err := LoadEnvironmentFiles(dir)
	if err != nil {
		return nil, err
	}
	vars, ok := files[name]
	if !ok {
		msg := fmt.Sprintf("environment %q not found in %s", name, dir)
		if hint := Suggest(name, files.Names()); hint != "" {
			msg += ", " + hint
		}
		return nil, errors.New(msg)
	}
	return &Environment{Name: name, Variables: vars}, nil
}

func readEnvFile(path string) (map[string]map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := validateEnvFile(data); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	var raw map[string]map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	result := make(map[string]map[string]string, len(raw))
	for envName, vars := range raw {
		result[envName] = make(map[string]string, len(vars))
		for k, v := range vars {
			if s, ok := scalarString(v); ok {
				result[envName][k] = s
			}
		}
	}
	return result, nil
}

func validateEnvFile(data []byte) error {
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(envFileSchema),
		gojsonschema.NewBytesLoader(data),
	)
	if err != nil {
		return fmt.Errorf("invalid environment file: %w", err)
	}
	if result.Valid() {
		return nil
	}
	var errs []string
	for _, desc := range result.Errors() {
		errs = append(errs, desc.String())
	}
	return fmt.Errorf("invalid environment file: %s", strings.Join(errs, "; "))
}

func scalarString(v any) (string, bool) {
	switch v := v.(type) {
	case string:
		return v, true
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(v), true
	default:
		return "", false
	}
}

// MergeVariables merges sources left to right; later sources win.
func MergeVariables(sources ...map[string]string) map[string]string {
	result := make(map[string]string)
	for _, src := range sources {
		for k, v := range src {
			result[k] = v
		}
	}
	return result
}

// Sources names where a request file's variables come from.
type Sources struct {
	// Environment selects an entry of the environment files; empty skips them.
	Environment string
	// EnvFile is a dotenv file, relative to the request file's directory. A
	// missing file is ignored.
	EnvFile   string
	Overrides map[string]string
}

// LoadVariables collects the variables for request files in dir: the
// selected environment, then the dotenv file, then the overrides.
func LoadVariables(dir string, src Sources) (map[string]string, error) {
	var environment, dotenv map[string]string

	if src.Environment != "" {
		files, err := LoadEnvironmentFiles(dir)
		if err != nil {
			return nil, fmt.Errorf("loading environment: %w", err)
		}
		if len(files) > 0 {
			e, err := LoadEnvironment(dir, src.Environment)
			if err != nil {
				return nil, fmt.Errorf("loading environment: %w", err)
			}
			environment = e.Variables
		}
	}

	if src.EnvFile != "" {
		path := src.EnvFile
		if !filepath.IsAbs(path) {
			path = filepath.Join(dir, path)
		}
		vars, err := LoadDotEnv(path)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("loading env file: %w", err)
		}
		dotenv = vars
	}

	return MergeVariables(environment, dotenv, src.Overrides), nil
}
