package main

import (
	"fmt"
	"os"

	"github.com/sc1-labs/vaultops/cmd/vaultops"
)

func main() {
	rootCmd := vaultops.BuildRootCmd()

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
