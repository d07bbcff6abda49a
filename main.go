package main

import "github.com/youssefsiam38/flowent-gateway/cmd"

func main() {
	cmd.Execute()
}
