package main

import "github.com/theirongolddev/quitc/cmd"

func main() {
	cmd.Execute()
}
