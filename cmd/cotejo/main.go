// Command cotejo сверяет записи двух наборов данных и исправляет текст колонок
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
)

// version подставляется при сборке: -ldflags "-X main.version=..."
var version = "dev"

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}
