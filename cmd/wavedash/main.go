// Command wavedash serves and tests reactive dashboards.
package main

import (
	"os"

	"github.com/roach88/wavedash/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
