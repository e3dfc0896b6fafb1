package main

import "github.com/ridoystarlord/rapidgen/cmd"

func main() {
	cmd.Execute()
}
