package main

import "github.com/sextant-dev/sextant/internal/cmd"

func main() {
	cmd.Execute()
}
