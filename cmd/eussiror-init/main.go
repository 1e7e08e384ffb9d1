package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/tjfontaine/eussiror/internal/config"
)

func main() {
	path := config.DefaultPath
	if len(os.Args) > 2 {
		fmt.Println("Usage: go run cmd/eussiror-init/main.go [path]")
		fmt.Println("Writes a commented sample configuration, eussiror.yaml by default")
		os.Exit(1)
	}
	if len(os.Args) == 2 {
		path = os.Args[1]
	}

	if err := config.WriteSample(path); err != nil {
		if errors.Is(err, config.ErrSampleExists) {
			fmt.Printf("%s already exists, leaving it untouched\n", path)
			os.Exit(1)
		}
		fmt.Fprintf(os.Stderr, "Failed to write sample config: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Wrote %s\n", path)
	fmt.Println("\nNext steps:")
	fmt.Println("  1. Set repository to the owner/name receiving issues")
	fmt.Println("  2. Export GITHUB_TOKEN with issues: write permission")
	fmt.Println("  3. Mount the middleware: router.Use(eussiror.Middleware)")
}
