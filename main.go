package main

import "github.com/hbagheri/mailflow/cmd"

func main() {
	cmd.Execute()
}
