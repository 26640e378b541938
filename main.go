package main

import (
	"fmt"
	"os"

	"github.com/aqlanhadi/gestionale/cmd"
	"github.com/joho/godotenv"
)

var version = "dev"

func main() {
	if len(os.Args) > 1 && os.Args[1] == "--version" {
		fmt.Printf("gestionale version %s\n", version)
		os.Exit(0)
	}

	// A missing .env is fine
	_ = godotenv.Load()

	cmd.Execute()
}
