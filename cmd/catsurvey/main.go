package main

import (
	"os"

	_ "github.com/mattn/go-sqlite3"

	"github.com/godilite/catsurvey/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
