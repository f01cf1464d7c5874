package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	root := &cobra.Command{
		Use:     "brewfind",
		Short:   "brewfind — natural-language coffee search with a translation cache",
		Version: version,
	}

	root.AddCommand(
		newSearchCmd(),
		newServeCmd(),
		newCacheCmd(),
		newLogCmd(),
		newCatalogCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
