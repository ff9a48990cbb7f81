package main

import "github.com/faultline-dev/faultline/internal/cmd"

func main() {
	cmd.Execute()
}
