package main

import (
	"fmt"
	"os"
)

// Version will be set at build time via -ldflags
var Version = "v0.1.0"

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "--version", "version":
			fmt.Printf("ghrel %s\n", Version)
			return
		case "sync":
			exit(runSync(os.Args[2:]))
		case "list":
			exit(runList(os.Args[2:]))
		case "prune":
			exit(runPrune(os.Args[2:]))
		case "--help", "-h", "help":
			printHelp()
			return
		default:
			fmt.Fprintf(os.Stderr, "Error: unknown command: %s\n", os.Args[1])
			fmt.Fprintln(os.Stderr, "Run 'ghrel --help' for usage")
			os.Exit(1)
		}
	}

	printHelp()
}

func exit(code int, err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if code == 0 {
			code = 1
		}
	}
	os.Exit(code)
}

func printHelp() {
	fmt.Println("ghrel - install single-binary tools from GitHub releases")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  ghrel sync [options] [dir]  Install and update declared packages")
	fmt.Println("  ghrel list [options]        List installed packages")
	fmt.Println("  ghrel prune [options]       Remove packages with no package file")
	fmt.Println("  ghrel --version             Show version information")
	fmt.Println()
	fmt.Println("Package files are Lua files in " + configHint() + ".")
	fmt.Println("Run 'ghrel <command> --help' for command options.")
}

func configHint() string {
	return packagesDir("")
}
