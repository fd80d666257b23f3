package main

import "github.com/gaurav-prasanna/quillpipe/cmd"

func main() {
	cmd.Execute()
}
