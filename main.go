// The main package for the shelfmark executable.
package main

import (
	"github.com/shelfmark/shelfmark/cmd"
)

func main() {
	cmd.Execute()
}
