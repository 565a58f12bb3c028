/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package main

import "guardian/cmd"

func main() {
	cmd.Execute()
}
