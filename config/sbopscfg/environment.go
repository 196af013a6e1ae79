package sbopscfg

import (
	"fmt"
	"maps"
	"slices"
	"strings"
)

// ApplyEnvironment merges the overlay named name into r. An empty name
// falls back to r.Environment; when both are empty nothing happens.
func (r *Root) ApplyEnvironment(name string) error {
	if name == "" {
		name = r.Environment
	}
	if name == "" {
		return nil
	}
	ov, ok := r.Environments[name]
	if !ok {
		known := slices.Sorted(maps.Keys(r.Environments))
		return fmt.Errorf("unknown environment %q (known: %s)", name, strings.Join(known, ", "))
	}
	r.Environment = name

	if ov.Replicas != nil {
		n := *ov.Replicas
		r.Backend.Replicas = &n
	}
	if ov.ImageTag != "" {
		r.Backend.Image.Tag = ov.ImageTag
		if r.Frontend.Image.Repository != "" {
			r.Frontend.Image.Tag = ov.ImageTag
		}
	}
	if ov.Host != "" {
		r.Backend.Host = ov.Host
	}
	if ov.TLSMode != "" {
		r.Backend.TLS.Mode = ov.TLSMode
	}
	if ov.IssuerServer != "" {
		r.Cluster.CertManager.Server = ov.IssuerServer
	}
	if ov.FrontendName != "" {
		r.Frontend.Name = ov.FrontendName
	}
	r.Backend.Env = mergeMap(r.Backend.Env, ov.BackendEnv)
	r.Frontend.AppSettings = mergeMap(r.Frontend.AppSettings, ov.FrontendAppSettings)
	return nil
}

func mergeMap(base, over map[string]string) map[string]string {
	if len(over) == 0 {
		return base
	}
	out := make(map[string]string, len(base)+len(over))
	maps.Copy(out, base)
	maps.Copy(out, over)
	return out
}
