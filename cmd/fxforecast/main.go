package main

import "github.com/rustyeddy/fxforecast/internal/cli"

func main() {
	cli.Execute()
}
