package main

import "github.com/jjenkins/classwatch/cmd"

func main() {
	cmd.Execute()
}
