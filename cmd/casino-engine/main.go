// Command casino-engine serves and exercises the entropy-to-outcome
// processors for mines, plinko, roulette and wheel.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
