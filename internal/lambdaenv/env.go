// Package lambdaenv reads reserved Lambda runtime environment variables.
// https://docs.aws.amazon.com/lambda/latest/dg/configuration-envvars.html#configuration-envvars-runtime
package lambdaenv

import (
	"os"
	"strconv"
)

// XAmznTraceID returns X-Ray tracing header.
func XAmznTraceID() string {
	return os.Getenv("_X_AMZN_TRACE_ID")
}

// AWSRegion returns the AWS Region where the Lambda function is executed.
func AWSRegion() string {
	return os.Getenv("AWS_REGION")
}

// FunctionName returns the name of the function.
func FunctionName() string {
	return os.Getenv("AWS_LAMBDA_FUNCTION_NAME")
}

// FunctionMemorySizeMB returns the amount of memory available to the function in MB.
func FunctionMemorySizeMB() int {
	n, _ := strconv.Atoi(os.Getenv("AWS_LAMBDA_FUNCTION_MEMORY_SIZE"))

	return n
}

// FunctionVersion returns the version of the function being executed.
func FunctionVersion() string {
	return os.Getenv("AWS_LAMBDA_FUNCTION_VERSION")
}

// LogVerbosity returns LOG_VERBOSITY, the logr verbosity of the forwarder. Zero when unset or invalid.
func LogVerbosity() int {
	n, _ := strconv.Atoi(os.Getenv("LOG_VERBOSITY"))

	return n
}

// TracesToStdout reports whether OTEL_TRACES_STDOUT enables printing spans to stdout.
func TracesToStdout() bool {
	b, _ := strconv.ParseBool(os.Getenv("OTEL_TRACES_STDOUT"))

	return b
}
