// Package handler implements the Lambda function handler forwarding CloudWatch Logs subscription events to Datadog.
// Pass Handler.Handle to lambda.Start in your main package.
package handler
