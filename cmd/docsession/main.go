// Command docsession is a terminal markdown editor with per-document sessions.
package main

import (
	"fmt"
	"os"

	"github.com/Iron-Ham/docsession/internal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
