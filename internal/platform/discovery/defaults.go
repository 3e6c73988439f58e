// Package discovery centralizes the league's service address conventions.
package discovery

import (
	"strconv"
	"strings"
)

// ServiceLeague is the league runtime's service identity.
const ServiceLeague = "league"

// LeaguePort is the league runtime's default gRPC health port.
const LeaguePort = 8095

var grpcPorts = map[string]int{
	ServiceLeague: LeaguePort,
}

// DefaultGRPCAddr returns the canonical in-network gRPC address for a service.
func DefaultGRPCAddr(service string) string {
	service = strings.TrimSpace(service)
	port, ok := grpcPorts[service]
	if !ok {
		return ""
	}
	return service + ":" + strconv.Itoa(port)
}

// OrDefaultGRPCAddr returns value when set, otherwise the service convention.
func OrDefaultGRPCAddr(value, service string) string {
	value = strings.TrimSpace(value)
	if value != "" {
		return value
	}
	return DefaultGRPCAddr(service)
}
