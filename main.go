package main

import "github.com/notargets/gibmesh/cmd"

func main() {
	cmd.Execute()
}
