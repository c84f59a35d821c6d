package main

import "aws-snapshot-utility/cmd"

func main() {
	cmd.Execute()
}
