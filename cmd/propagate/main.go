package main

import "github.com/emrgen/propagate/cmd"

func main() {
	cmd.Execute()
}
