package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/dmitrijs2005/knifecatalog/internal/catalogctl"
)

func main() {

	app := catalogctl.NewApp(os.Stdin, os.Stdout)
	if err := app.Run(context.Background(), os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		if errors.Is(err, catalogctl.ErrUsage) {
			os.Exit(2)
		}
		os.Exit(1)
	}

}
