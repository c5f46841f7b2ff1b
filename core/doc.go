// Package core defines the domain model shared by the secanalytics gateways,
// stores and overview actor.
//
// # Overview
//
// The core package provides:
//   - Wire types returned by the Security Analytics backend (Detector, Finding, Alert, Rule)
//   - Display rows built from them (FindingItem, AlertItem) and the OverviewViewModel
//   - The uniform Result type every gateway returns
//   - The severity tie-break policy and time-window parsing
//   - Shared infrastructure (CircuitBreaker, RedisCache)
//
// # Design Principles
//
//  1. Value types are copied, never mutated in place after a refresh completes
//  2. Gateways report business failures through Result, not through panics or errors
//  3. context.Context is the first parameter of every blocking call
package core
