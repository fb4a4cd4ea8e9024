package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/livetemplate/tinkerpen"
	"github.com/livetemplate/tinkerpen/internal/export"
)

// AssembleCommand prints the document built from a project directory.
// Usage: tinkerpen assemble [dir] [--pretty]
func AssembleCommand(args []string) error {
	return assemble(args, os.Stdout)
}

func assemble(args []string, out io.Writer) error {
	p, err := parseArgs(args, nil, nil)
	if err != nil {
		return err
	}

	f, err := export.LoadProject(p.arg(0, "."))
	if err != nil {
		return err
	}

	if p.switches["pretty"] {
		_, err = io.WriteString(out, tinkerpen.AssemblePretty(f))
		return err
	}
	_, err = fmt.Fprintln(out, tinkerpen.AssembleInline(f))
	return err
}

// FormatCommand re-indents HTML from a file or stdin.
// Usage: tinkerpen format [file] [--write]
func FormatCommand(args []string) error {
	return format(args, os.Stdin, os.Stdout)
}

func format(args []string, in io.Reader, out io.Writer) error {
	p, err := parseArgs(args, nil, map[string]string{"w": "write"})
	if err != nil {
		return err
	}

	path := p.arg(0, "-")
	if p.switches["write"] && path == "-" {
		return fmt.Errorf("--write needs a file")
	}

	var data []byte
	if path == "-" {
		data, err = io.ReadAll(in)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}

	formatted := tinkerpen.ReformatHTML(string(data))

	if p.switches["write"] {
		info, err := os.Stat(path)
		if err != nil {
			return err
		}
		if err := os.WriteFile(path, []byte(formatted+"\n"), info.Mode().Perm()); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		fmt.Fprintf(out, "✅ Formatted %s\n", path)
		return nil
	}

	_, err = fmt.Fprintln(out, formatted)
	return err
}
