package banner

import (
	"fmt"
	"io"
	"strings"

	"uptime/pkg/config"
)

const banner = `
██╗   ██╗██████╗ ████████╗██╗███╗   ███╗███████╗
██║   ██║██╔══██╗╚══██╔══╝██║████╗ ████║██╔════╝
██║   ██║██████╔╝   ██║   ██║██╔████╔██║█████╗  
██║   ██║██╔═══╝    ██║   ██║██║╚██╔╝██║██╔══╝  
╚██████╔╝██║        ██║   ██║██║ ╚═╝ ██║███████╗
 ╚═════╝ ╚═╝        ╚═╝   ╚═╝╚═╝     ╚═╝╚══════╝
`

// Print writes the banner and a summary of the effective config to w.
func Print(w io.Writer, eff config.EffectiveConfigResult, routes []string, version string) {
	cfg := eff.Config
	src := eff.Source
	if src == "" {
		src = "defaults"
	}

	fmt.Fprint(w, banner)
	fmt.Fprintln(w, "== Config =====================================================")
	fmt.Fprintf(w, "Env:      %s\n", cfg.Env)
	fmt.Fprintf(w, "Engine:   %s\n", cfg.Server.Engine)
	fmt.Fprintf(w, "HTTP:     %s\n", cfg.HTTPAddr())
	if cfg.TLSEnabled() {
		fmt.Fprintf(w, "HTTPS:    %s\n", cfg.HTTPSAddr())
	} else {
		fmt.Fprintln(w, "HTTPS:    disabled (no server.tls cert/key)")
	}
	if cfg.Metrics.Address != "" {
		fmt.Fprintf(w, "Metrics:  %s\n", cfg.Metrics.Address)
	}
	if version != "" {
		fmt.Fprintf(w, "Version:  %s\n", version)
	}
	if eff.ConfigPath != "" {
		fmt.Fprintf(w, "Config:   %s (%s)\n", src, eff.ConfigPath)
	} else {
		fmt.Fprintf(w, "Config:   %s\n", src)
	}

	fmt.Fprintln(w, "\n== Routes =====================================================")
	fmt.Fprintf(w, "- %s\n", strings.Join(routes, ", "))

	fmt.Fprintln(w, "\n== Limits =====================================================")
	fmt.Fprintf(w, "- Max body size: %s\n", cfg.Server.MaxBodySize)
	if d := cfg.Dispatch.ReplyTimeout.Duration(); d > 0 {
		fmt.Fprintf(w, "- Reply timeout: %s\n", d)
	} else {
		fmt.Fprintln(w, "- Reply timeout: none")
	}
	if cfg.RateLimit.RPS > 0 {
		fmt.Fprintf(w, "- Rate limit: %g rps (burst %d)\n", cfg.RateLimit.RPS, cfg.RateLimit.Burst)
	} else {
		fmt.Fprintln(w, "- Rate limit: disabled")
	}
}
