// Command ownercheck runs borrow checker conformance fixtures against an
// analyzer and reports which expectations it meets.
package main

import (
	"os"

	"github.com/roach88/ownercheck/internal/cli"
)

func main() {
	os.Exit(cli.Execute(os.Args[1:], os.Stdout, os.Stderr))
}
