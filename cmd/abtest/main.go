package main

import "github.com/pm33/abtest/internal/cli"

func main() {
	cli.Execute()
}
