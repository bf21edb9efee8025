package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"

	helloelement "github.com/wippyai/hello-element"
	"github.com/wippyai/hello-element/errors"
)

// config is the CLI configuration. Command line flags override the file.
type config struct {
	Root        string      `toml:"root"`
	Module      string      `toml:"module"`
	LogLevel    string      `toml:"log_level"`
	MemoryPages uint32      `toml:"memory_pages"`
	Serve       serveConfig `toml:"serve"`
}

type serveConfig struct {
	Addr           string   `toml:"addr"`
	App            string   `toml:"app"`       // browser entrypoint, relative to root
	WasmExec       string   `toml:"wasm_exec"` // wasm_exec.js, relative to root
	AllowedOrigins []string `toml:"allowed_origins"`
	TimeoutSeconds int      `toml:"timeout_seconds"`
}

const defaultConfigTOML = `# hello-world configuration

root = "."
module = "./hello.wasm"
log_level = "info"
memory_pages = 256

[serve]
addr = ":8080"
app = "app.wasm"
wasm_exec = "wasm_exec.js"
allowed_origins = ["*"]
timeout_seconds = 30
`

func defaultConfig() config {
	return config{
		Root:        ".",
		Module:      helloelement.DefaultModulePath,
		LogLevel:    "info",
		MemoryPages: 256,
		Serve: serveConfig{
			Addr:           ":8080",
			App:            "app.wasm",
			WasmExec:       "wasm_exec.js",
			AllowedOrigins: []string{"*"},
			TimeoutSeconds: 30,
		},
	}
}

// parseConfig decodes data over the defaults and rejects unknown keys.
func parseConfig(data string) (config, error) {
	cfg := defaultConfig()
	md, err := toml.Decode(data, &cfg)
	if err != nil {
		return config{}, errors.Wrap(errors.PhaseConfig, errors.KindInvalidData, err, "parse config")
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return config{}, errors.New(errors.PhaseConfig, errors.KindInvalidInput).
			Value(keys).
			Detail("unknown keys: %s", strings.Join(keys, ", ")).
			Build()
	}
	return cfg, cfg.validate()
}

// loadConfig reads the file at path. An empty path yields the defaults.
func loadConfig(path string) (config, error) {
	if path == "" {
		return defaultConfig(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return config{}, errors.Wrap(errors.PhaseConfig, errors.KindNotFound, err, "read config "+path)
	}
	return parseConfig(string(data))
}

// maxMemoryPages is the wasm32 limit of 4GiB in 64KiB pages.
const maxMemoryPages = 65536

// memoryPages converts a -memory-pages flag value, rejecting values the
// config cannot hold.
func memoryPages(v uint) (uint32, error) {
	if v > maxMemoryPages {
		return 0, errors.InvalidInput(errors.PhaseConfig, fmt.Sprintf("memory_pages must be <= %d, got %d", maxMemoryPages, v))
	}
	return uint32(v), nil
}

func (c config) validate() error {
	if c.Module == "" {
		return errors.InvalidInput(errors.PhaseConfig, "module must not be empty")
	}
	if c.Root == "" {
		return errors.InvalidInput(errors.PhaseConfig, "root must not be empty")
	}
	if c.MemoryPages > maxMemoryPages {
		return errors.InvalidInput(errors.PhaseConfig, fmt.Sprintf("memory_pages must be <= %d, got %d", maxMemoryPages, c.MemoryPages))
	}
	if c.Serve.TimeoutSeconds < 0 {
		return errors.InvalidInput(errors.PhaseConfig, fmt.Sprintf("timeout_seconds must be >= 0, got %d", c.Serve.TimeoutSeconds))
	}
	return nil
}
