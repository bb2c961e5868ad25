// Package main is the entry point for the job tracker auth service.
package main

import (
	"fmt"
	"os"

	_ "jobtrack/docs" // swagger docs
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// @title Job Tracker Auth API
// @version 1.0
// @description Account registration, login, profile and email token flows for the job tracker.
// @host localhost:8080
// @BasePath /api
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
func main() {
	cmd := NewRootCmd()
	cmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date)

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
