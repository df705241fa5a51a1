package main

import (
	"gridbrief/cmd/handlers"
	"gridbrief/internal/logger"
)

func main() {
	logger.Init()
	handlers.Execute()
}
