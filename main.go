package main

import "github.com/encodeous/lrr/cmd"

func main() {
	cmd.Execute()
}
