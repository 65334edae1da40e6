package main

import "github.com/chattmt/chattmt/cmd"

func main() {
	cmd.Execute()
}
