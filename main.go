package main

import "github.com/podscribe/podscribe-api/cmd"

func main() {
	cmd.Execute()
}
