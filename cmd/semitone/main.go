package main

import (
	"embed"
	"fmt"
	"os"

	"github.com/zurustar/semitone/pkg/app"
)

//go:embed all:static
var embeddedStatic embed.FS

func main() {
	application := app.New(embeddedStatic)
	if err := application.Run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
