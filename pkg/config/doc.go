/*
Package config loads the cutover configuration file.

The file is YAML and describes the two environments, the router resource,
the static service set, and every timing knob (deploy timeout, probe
budget, dwell period, stability window). Unset values fall back to the
documented defaults, so a minimal config only names the environments and
services.

Example:

	router:
	  name: app-router
	  namespace: default
	environments:
	  blue:  {namespace: blue}
	  green: {namespace: green}
	services:
	  - name: postgres
	    image: postgres:16
	    port: 5432
	    tier: infra
	  - name: api
	    image: registry.local/api:v42
	    port: 8080
	    replicas: 3
	    healthPath: /healthz
	    compliance: true
	migrate:
	  dwell: 60s
*/
package config
