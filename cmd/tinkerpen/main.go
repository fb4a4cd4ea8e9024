// Command tinkerpen is a live HTML, CSS and JavaScript preview editor.
package main

import (
	"fmt"
	"os"

	"github.com/livetemplate/tinkerpen/cmd/tinkerpen/commands"
)

const version = "0.1.0-dev"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	var err error
	switch command {
	case "serve":
		err = commands.ServeCommand(args)
	case "assemble":
		err = commands.AssembleCommand(args)
	case "format":
		err = commands.FormatCommand(args)
	case "export":
		err = commands.ExportCommand(args)
	case "copy":
		err = commands.CopyCommand(args)
	case "screenshot":
		err = commands.ScreenshotCommand(args)
	case "version":
		fmt.Printf("tinkerpen version %s\n", version)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprint(os.Stderr, commands.FormatError(err))
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("tinkerpen - Live HTML, CSS and JavaScript preview")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  tinkerpen serve [directory]               Start the editor server")
	fmt.Println("  tinkerpen assemble [directory]            Print the preview document")
	fmt.Println("  tinkerpen format [file]                   Re-indent HTML (stdin if no file)")
	fmt.Println("  tinkerpen export <directory> --out DIR    Write index.html, styles.css, script.js")
	fmt.Println("  tinkerpen copy [directory]                Copy the document to the clipboard")
	fmt.Println("  tinkerpen screenshot [directory]          Save preview-screenshot.png")
	fmt.Println("  tinkerpen version                         Show version")
	fmt.Println("  tinkerpen help                            Show this help")
	fmt.Println()
	fmt.Println("A project directory holds index.html, styles.css and script.js;")
	fmt.Println("missing files count as empty.")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  tinkerpen serve                           # Empty editor on :8080")
	fmt.Println("  tinkerpen serve ./demo --watch            # Seed from ./demo, follow file edits")
	fmt.Println("  tinkerpen serve --chrome http://localhost:9222")
	fmt.Println("  tinkerpen assemble ./demo --pretty        # Readable document")
	fmt.Println("  tinkerpen format page.html --write        # Re-indent in place")
	fmt.Println("  tinkerpen export ./demo --out ./dist      # Copy the three files")
	fmt.Println("  tinkerpen screenshot ./demo --out shot.png")
	fmt.Println()
	fmt.Println("Documentation: https://github.com/livetemplate/tinkerpen")
}
