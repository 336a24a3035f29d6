// Package datadog implements a client for the Datadog Logs HTTP intake API.
// Client sends a whole batch in a single request and never retries: redelivery is left to the Lambda runtime.
// https://docs.datadoghq.com/api/latest/logs/#send-logs
package datadog
