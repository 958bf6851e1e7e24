package main

import "ragrec/internal/cli"

func main() {
	cli.Execute()
}
