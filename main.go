package main

import "github.com/neiii/stargate-better-auth/cmd"

func main() {
	cmd.Execute()
}
