// Command iidpd runs the individualized item-delivery daemon.
package main

import (
	"fmt"
	"os"

	"github.com/tutu-network/jeevibe-iidp/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
