// Test function for aws-lambda-rie. It forwards logs to the intake given in TEST_INTAKE_ENDPOINT.
package main

import (
	"context"
	"log"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/go-logr/stdr"
	"github.com/zakharovvi/lambda-logs-forwarder/datadog"
	"github.com/zakharovvi/lambda-logs-forwarder/handler"
)

func main() {
	stdr.SetVerbosity(1)
	logger := stdr.New(log.New(os.Stderr, "", log.Lshortfile))

	h := handler.New(
		context.Background(),
		handler.WithLogger(logger),
		handler.WithClientOptions(datadog.WithEndpoint(os.Getenv("TEST_INTAKE_ENDPOINT"))),
	)
	lambda.Start(h.Handle)
}
