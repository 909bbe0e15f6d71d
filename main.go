package main

import "github.com/kozaktomas/frame-finder/cmd"

func main() {
	cmd.Execute()
}
