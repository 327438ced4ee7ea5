package main

import "github.com/brk3/healthdata/cmd"

func main() {
	cmd.Execute()
}
