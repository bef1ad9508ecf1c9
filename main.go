package main

import "github.com/vidra-dl/vidra/cmd"

func main() {
	cmd.Execute()
}
