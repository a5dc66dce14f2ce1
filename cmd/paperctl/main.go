// Command paperctl runs maintenance jobs against the paper store: category
// crawls and embedding/metadata backfills.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
