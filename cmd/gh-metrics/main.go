package main

import (
	"context"
	"fmt"
	"log"
	"os"

	awslambda "github.com/aws/aws-lambda-go/lambda"
	"github.com/stahnma/gh-metrics/internal/commands"
	"github.com/stahnma/gh-metrics/internal/config"
	lambdapkg "github.com/stahnma/gh-metrics/internal/lambda"
)

var (
	GitSHA   string
	GitDirty string
)

func main() {
	cfg, err := config.FromEnvironment()
	if err != nil {
		log.Fatalf("Error loading configuration: %v", err)
	}

	app, err := commands.NewApp(cfg, GitSHA, GitDirty)
	if err != nil {
		log.Fatalf("Error initializing application: %v", err)
	}

	if os.Getenv("LAMBDA_TASK_ROOT") != "" {
		awslambda.Start(lambdapkg.NewHandler(app))
		return
	}

	rootCmd := app.NewRootCommand()
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
