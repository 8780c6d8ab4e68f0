//go:build !unix

package main

import (
	"fmt"
	"os"
)

func main() {
	fmt.Fprintln(os.Stderr, "the console front end needs a unix terminal; use cmd/desktop")
	os.Exit(1)
}
