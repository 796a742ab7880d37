package main

import (
	"context"
	"isugrades-backend/cmd/isugrades-cli/commands"
	"isugrades-backend/internal/components/telemetry"
)

func main() {
	telemetry.InitSlog(false)
	commands.ExecuteContext(context.Background())
}
