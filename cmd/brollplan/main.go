package main

import "github.com/mkravets/brollplan/internal/cli"

func main() {
	cli.Main()
}
