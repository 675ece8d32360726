package main

import (
	"os"

	"github.com/solatis/datagrid/cmd/datagrid/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
