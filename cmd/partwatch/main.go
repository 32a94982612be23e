package main

import (
	"partwatch/cmd/partwatch/commands"
	"partwatch/pkg/serviceutil"
)

func main() {
	commands.ExecuteContext(serviceutil.SignalContext())
}
