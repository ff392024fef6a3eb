// Command mindctl is a thin CLI over the mindcore Knowledge Core library:
// each subcommand loads config, resolves paths, constructs the relevant
// core type, calls one core operation, and prints JSON to stdout. It
// deliberately duplicates no core semantics, mirroring the teacher's
// cmd/bd Cobra entrypoint.
package main

import "os"

func main() {
	if err := Execute(); err != nil {
		os.Exit(1)
	}
}
