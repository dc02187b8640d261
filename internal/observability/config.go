package observability

import (
	"net/http"
	"net/http/pprof"
)

// Config captures opt-in observability toggles for the HTTP surface.
type Config struct {
	EnablePprof bool
}

// Register mounts the enabled debug endpoints on mux.
func (c Config) Register(mux *http.ServeMux) {
	if !c.EnablePprof {
		return
	}
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
}
