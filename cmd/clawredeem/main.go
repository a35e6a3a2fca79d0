package main

import (
	"clawredeem/cmd/clawredeem/commands"
	"clawredeem/pkg/serviceutil"
)

func main() {
	commands.ExecuteContext(serviceutil.SignalContext())
}
