package main

import "github.com/bryanchriswhite/wirecast/cmd/wirecast/commands"

func main() {
	commands.Execute()
}
