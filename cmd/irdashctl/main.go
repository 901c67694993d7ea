package main

import "github.com/irdash/backend/internal/cli"

func main() {
	cli.Execute()
}
