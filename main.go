// The main package for the bounty-scope-crawler executable.
package main

import (
	"github.com/JakeFAU/bounty-scope-crawler/cmd"
)

func main() {
	cmd.Execute()
}
