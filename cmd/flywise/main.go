package main

import (
	"fmt"
	"os"
	_ "time/tzdata"

	"github.com/marcelmurilo1-jpg/saas-milhas/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "flywise: %v\n", err)
		os.Exit(1)
	}
}
