package main

import (
	"context"
	"fmt"
	"os"

	"github.com/dominikcirko/kanban-app/internal/admin"
	"github.com/dominikcirko/kanban-app/internal/logging"
)

func main() {
	logger := logging.NewJSONLogger(os.Stderr, "warn")

	if err := admin.NewRootCommand(admin.OpenPostgres, logger).ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
