package main

import (
	"os"

	"github.com/silkcms/silk-admin/app"
)

func main() {
	err := app.Execute()
	if err != nil {
		os.Exit(1)
	}
}
