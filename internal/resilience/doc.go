// Package resilience holds the failure-handling pieces of the harvester.
//
// circuitbreaker keeps one gobreaker per notice source so a site that keeps
// failing is skipped for a cooldown instead of being hammered every cycle.
// retry has the bounded backoff used for the startup database ping and the
// cancellable Sleep/Jitter helpers used for pacing between requests.
package resilience
