package main

import "github.com/BioHazard786/huddle/cmd"

func main() {
	cmd.Execute()
}
