package main

import "github.com/brazyl/brazyl/internal/cli"

func main() {
	cli.Execute()
}
