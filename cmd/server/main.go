package main

import (
	_ "github.com/careloop/careloop/docs"
	"github.com/careloop/careloop/internal/bootstrap"
)

// @title Careloop API
// @version 1.0.0
// @description Backend for the Careloop health companion: realtime voice sessions and a personal health knowledge base.

// @host localhost:8080
// @BasePath /v1

func main() {
	bootstrap.Run()
}
