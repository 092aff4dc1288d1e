package main

import "Bpsb/cmd"

func main() {
	cmd.Execute()
}
