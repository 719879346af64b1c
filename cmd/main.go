package main

import (
	"os"

	"quiz-attempt-service/internal/cli"
	"quiz-attempt-service/internal/logger"
)

func main() {
	logger.Init()
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
