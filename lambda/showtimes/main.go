package main

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"github.com/drewfead/showtimes/internal/commands"
)

// lambdaHandler runs the command named in the request body, e.g. "showtimes"
// or "movies --output text", and returns what it printed.
func lambdaHandler(ctx context.Context, request events.LambdaFunctionURLRequest) (events.LambdaFunctionURLResponse, error) {
	command := strings.Fields(request.Body)
	if len(command) == 0 {
		return events.LambdaFunctionURLResponse{Body: "missing command", StatusCode: 400}, nil
	}

	var out bytes.Buffer
	app := &cli.App{
		Name:     "showtimes",
		Usage:    "A utility for discovering and fetching showtime schedules from Boxoffice-powered theater websites",
		Commands: commands.Scrapers,
		Writer:   &out,
	}

	args := append([]string{"showtimes"}, command...)
	if err := app.RunContext(ctx, args); err != nil {
		return events.LambdaFunctionURLResponse{Body: "error", StatusCode: 500}, fmt.Errorf("failed to execute app: %v", err)
	}

	return events.LambdaFunctionURLResponse{Body: out.String(), StatusCode: 200}, nil
}

func main() {
	lambda.Start(lambdaHandler)
}
