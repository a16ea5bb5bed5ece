package main

import (
	"os"

	"github.com/axiomhq/huf/cmd/huf/app"

	"github.com/nuclio/errors"
)

func main() {
	if err := app.NewRootCommandeer().Execute(); err != nil {
		errors.PrintErrorStack(os.Stderr, err, 5)

		os.Exit(1)
	}
}
