// Package commands implements the tinkerpen subcommands.
package commands

import (
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"strings"

	"github.com/livetemplate/tinkerpen"
	"github.com/livetemplate/tinkerpen/internal/config"
)

// parsedArgs holds positional arguments and flags of one subcommand.
type parsedArgs struct {
	positional []string
	values     map[string]string
	switches   map[string]bool
}

// parseArgs splits args into positionals and flags. Flags named in
// valueFlags take a value, either as "--flag value" or "--flag=value";
// every other flag is a switch. Short aliases map onto long names.
func parseArgs(args []string, valueFlags []string, aliases map[string]string) (parsedArgs, error) {
	p := parsedArgs{
		values:   make(map[string]string),
		switches: make(map[string]bool),
	}

	takesValue := make(map[string]bool, len(valueFlags))
	for _, f := range valueFlags {
		takesValue[f] = true
	}

	for i := 0; i < len(args); i++ {
		arg := args[i]
		if !strings.HasPrefix(arg, "-") || arg == "-" {
			p.positional = append(p.positional, arg)
			continue
		}

		name, value, hasValue := strings.Cut(strings.TrimLeft(arg, "-"), "=")
		if long, ok := aliases[name]; ok {
			name = long
		}

		if !takesValue[name] {
			p.switches[name] = true
			continue
		}
		if !hasValue {
			if i+1 >= len(args) {
				return p, fmt.Errorf("flag --%s needs a value", name)
			}
			value = args[i+1]
			i++
		}
		p.values[name] = value
	}

	return p, nil
}

// arg returns the n-th positional argument or def.
func (p parsedArgs) arg(n int, def string) string {
	if n < len(p.positional) {
		return p.positional[n]
	}
	return def
}

// loadConfig loads --config if given, otherwise tinkerpen.yaml from dir.
func loadConfig(dir, configPath string) (*config.Config, error) {
	if configPath != "" {
		cfg, err := config.Load(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		log.Printf("📝 Using config: %s", configPath)
		return cfg, nil
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}
	cfg, err := config.LoadFromDir(abs)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// FormatError renders err for the terminal, with a tip line for export
// failures.
func FormatError(err error) string {
	var exportErr *tinkerpen.ExportError
	if errors.As(err, &exportErr) {
		return exportErr.Format()
	}
	return fmt.Sprintf("Error: %v\n", err)
}

func init() {
	log.SetFlags(0) // Remove timestamp from logs
}
