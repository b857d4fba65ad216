// Command sdverifier verifies selective-disclosure proofs against
// verification rules, using issuer parameters from local files.
package main

import (
	"fmt"
	"os"
)

func main() {
	root, err := newRootCmd()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	// On failure Cobra prints the usage message and error string, so we only
	// need to exit with a non-0 status
	if root.Execute() != nil {
		os.Exit(1)
	}
}
