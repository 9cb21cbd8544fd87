package main

import (
	"os"

	"github.com/SAP-F-2025/exam-pipeline-service/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
