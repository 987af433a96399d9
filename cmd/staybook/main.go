package main

import (
	"github.com/example/staybook/cmd"
	"github.com/joho/godotenv"
)

func main() {
	// Optional .env for local development; real deployments set the
	// environment directly.
	_ = godotenv.Load()

	cmd.Execute()
}
