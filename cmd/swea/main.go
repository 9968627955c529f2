package main

import "github.com/assix/software-engineer-ai-agent/app/cmd"

func main() {
	cmd.Execute()
}
