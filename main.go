package main

import "vibeify/cmd"

func main() {
	cmd.Execute()
}
