package main

import "github.com/modkit/luahost/cmd"

func main() {
	cmd.Execute()
}
