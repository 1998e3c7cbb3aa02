// Package main is the entry point for the cosq CLI application.
// It provides a terminal client for the Azure Cosmos DB SQL API.
package main

import (
	"cosq/cli/cmd"
)

// main is the entry point for the cosq CLI application.
// It initializes and executes the command-line interface.
func main() {
	cmd.Execute()
}
