package main

import "github.com/untibullet/teamform/cmd/app/cmd"

func main() {
	cmd.Execute()
}
