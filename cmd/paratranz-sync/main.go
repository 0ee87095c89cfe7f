package main

import "paratranz-sync/internal/cli"

func main() {
	cli.Execute()
}
