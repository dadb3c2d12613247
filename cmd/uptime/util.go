package main

import (
	"sort"

	"uptime/pkg/config"
	"uptime/pkg/handlers"
)

func durationOrNone(d config.Duration) string {
	if d <= 0 {
		return "none"
	}
	return d.Duration().String()
}

// sortedRoutes renders a route table as "path=handler" pairs.
func sortedRoutes(routes map[string]string) []string {
	if routes == nil {
		routes = handlers.DefaultRoutes
	}
	out := make([]string, 0, len(routes))
	for path, name := range routes {
		out = append(out, path+"="+name)
	}
	sort.Strings(out)
	return out
}
