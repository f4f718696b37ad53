package main

import "api_crowdsale/cmd"

func main() {
	cmd.Execute()
}
