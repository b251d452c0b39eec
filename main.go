package main

import "github.com/HourSense/shadow-agent-framework/cli"

func main() {
	cli.Execute()
}
