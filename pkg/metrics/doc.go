/*
Package metrics defines the Prometheus collectors exported by cutover.

Collectors are package-level and registered once at init. The orchestrator
only emits; scraping, storage and visualization are external. During
`deploy` and `monitor` the CLI can expose Handler() on a configured
listener.
*/
package metrics
