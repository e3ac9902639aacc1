package main

import "github.com/KaramelBytes/tumorstat/cmd"

func main() {
	cmd.Execute()
}
