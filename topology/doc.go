// Package topology describes the static shard layout that every other shardkit
// package works against.
//
// A topology is a four-level hierarchy:
//
//	environment -> category -> zone -> shard -> Shard{Host, Port, ...}
//
// It is handed to shardkit once, at process start, and never mutated afterwards.
// All names are case-insensitive: keys are folded to lowercase when the topology
// is built and every lookup normalizes its input the same way, so "PROD.Orders"
// and "prod.orders" address the same shards.
//
// Basic Usage:
//
//	topo, err := topology.New(topology.Map{
//		"prod": {
//			"orders": {
//				"r1": {
//					"s0": {Host: "10.0.0.10", Port: 3306, Username: "app", Password: "secret", Database: "orders"},
//					"s1": {Host: "10.0.0.11", Port: 3306, Username: "app", Password: "secret", Database: "orders"},
//				},
//			},
//		},
//	})
//	if err != nil {
//		return err
//	}
//
//	shard, err := topo.Resolve(topology.Target{Env: "prod", Category: "orders", Zone: "r1", Shard: "s0"})
//
// Topologies can also be decoded from YAML with Decode, which is what the
// shardctl command uses.
package topology
