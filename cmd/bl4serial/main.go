/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package main

import (
	"github.com/ssargent/bl4serial/cmd/bl4serial/cmd"
)

func main() {
	cmd.Execute()
}
