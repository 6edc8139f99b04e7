package main

import "tint/cmd"

func main() {
	cmd.Execute()
}
