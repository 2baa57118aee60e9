// The main package for the pacer executable.
package main

import (
	"github.com/racekit/pacer/cmd"
)

func main() {
	cmd.Execute()
}
