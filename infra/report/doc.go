// Package report provides the result sinks backed by external systems:
// rotating JSONL files, SQLite, InfluxDB, Prometheus, MQTT and HTML route
// charts. Each sink is registered with the core/report registry on import.
package report
