// Command optimum judges the trials of a run configuration and reports the
// optimal solutions.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
