// Package config provides configuration management for the telemetry dashboard.
//
// The config package handles:
//   - Loading dashboard profiles from YAML files
//   - Applying defaults and validating the result
//   - Discovering and caching the profiles in a directory
//   - Loading .env files before flags and environment are read
//
// Profile Format:
//
//	name: shop
//	listen: ":8082"
//	endpoint: "ws://localhost:8082/dashboard"
//	metrics: [orders, customers, products]
//	persistence:
//	  driver: file        # none | file | redis
//	  dir: ./data
//	kafka:
//	  brokers: [localhost:9092]
//	  topic: dashboard-events
//
// Fields left out of a file keep the values from Default.
package config
