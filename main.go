package main

import "github.com/vomment/vomment/cmd"

func main() {
	cmd.Execute()
}
