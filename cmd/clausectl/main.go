package main

import "github.com/clauseinsight/clauseinsight/internal/cli"

func main() {
	cli.Execute()
}
