package main

import "kgmicrobe/kgreason/cmd"

func main() {
	cmd.Execute()
}
