package main

import "github.com/codefionn/testbridge/internal/cli"

func main() {
	cli.Execute()
}
