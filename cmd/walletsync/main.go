package main

import "github.com/vietddude/walletsync/internal/cli"

func main() {
	cli.Execute()
}
