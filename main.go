package main

import "github.com/Mohsinsiddi/w3transfer/cmd"

func main() {
	cmd.Execute()
}
