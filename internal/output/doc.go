// Package output renders shardctl results as tables, JSON or YAML.
package output
