package main

import "github.com/zhouzirui/ragdesk/backend/internal/cli"

func main() {
	cli.Execute()
}
