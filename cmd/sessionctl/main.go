package main

import "github.com/MrEthical07/goSession/cmd/sessionctl/cmd"

func main() {
	cmd.Execute()
}
