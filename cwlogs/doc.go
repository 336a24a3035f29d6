// Package cwlogs decodes CloudWatch Logs subscription payloads delivered to a Lambda function
// and reshapes the log events into Datadog intake records.
// https://docs.aws.amazon.com/AmazonCloudWatch/latest/logs/SubscriptionFilters.html#LambdaFunctionExample
package cwlogs
