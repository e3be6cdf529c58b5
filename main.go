package main

import "github.com/soulgarden/topicbus/cmd"

func main() {
	cmd.Execute()
}
