// Command simcore runs module pipelines over simulation systems, archives the
// resulting snapshots and inspects archived systems.
package main

import (
	"fmt"
	"os"
)

var exitFunc = os.Exit

func main() {
	if err := newRootCmd(newApp(os.Stdout)).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		exitFunc(1)
	}
}
