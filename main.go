package main

import "github.com/sparkify/dwh/cmd"

func main() {
	cmd.Execute()
}
