package main

import "github.com/valpere/tarjuman/cmd"

func main() {
	cmd.Execute()
}
