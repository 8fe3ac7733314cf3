package main

import "github.com/coastwatch-systems/coastwatch/internal/cli"

func main() {
	cli.Execute()
}
