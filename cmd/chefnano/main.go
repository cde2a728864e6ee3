// Package main provides the entry point for Chef Nano: the smart kitchen
// web server and its command line tools
package main

import (
	"os"

	"github.com/fatih/color"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		_, _ = color.New(color.FgRed).Fprintln(os.Stderr, "❌ "+err.Error())
		os.Exit(1)
	}
}
