// Package kubeconfig normalizes cluster credentials fetched from a provider
// and merges them into a user's kubeconfig file.
package kubeconfig

import (
	"fmt"
	"io"

	"k8s.io/client-go/tools/clientcmd"
	clientcmdapi "k8s.io/client-go/tools/clientcmd/api"
	"sigs.k8s.io/yaml"
)

// Result summarizes a merge.
type Result struct {
	Context string // final context name
	Renamed bool   // name was suffixed to avoid a conflict
	Current bool   // context became current-context
}

// Normalize parses kubeconfig bytes and reduces them to the current context
// only. When name is non-empty the context, cluster and user are all renamed
// to it. namespace, when set, becomes the context default namespace.
func Normalize(data []byte, name, namespace string) (*clientcmdapi.Config, error) {
	cfg, err := clientcmd.Load(data)
	if err != nil {
		return nil, fmt.Errorf("parse kubeconfig: %w", err)
	}
	if cfg.CurrentContext == "" {
		if len(cfg.Contexts) != 1 {
			return nil, fmt.Errorf("kubeconfig has no current context")
		}
		for k := range cfg.Contexts {
			cfg.CurrentContext = k
		}
	}
	if cfg.Contexts[cfg.CurrentContext] == nil {
		return nil, fmt.Errorf("context %q not found in kubeconfig", cfg.CurrentContext)
	}
	if err := clientcmdapi.MinifyConfig(cfg); err != nil {
		return nil, fmt.Errorf("minify kubeconfig: %w", err)
	}
	if err := clientcmdapi.FlattenConfig(cfg); err != nil {
		return nil, fmt.Errorf("flatten kubeconfig: %w", err)
	}

	ctx := cfg.Contexts[cfg.CurrentContext]
	cluster, ok := cfg.Clusters[ctx.Cluster]
	if !ok {
		return nil, fmt.Errorf("referenced cluster %q not found", ctx.Cluster)
	}
	user, ok := cfg.AuthInfos[ctx.AuthInfo]
	if !ok {
		return nil, fmt.Errorf("referenced user %q not found", ctx.AuthInfo)
	}
	if namespace != "" {
		ctx.Namespace = namespace
	}
	if name == "" {
		return cfg, nil
	}

	out := clientcmdapi.NewConfig()
	ctx.Cluster = name
	ctx.AuthInfo = name
	out.Contexts[name] = ctx
	out.Clusters[name] = cluster
	out.AuthInfos[name] = user
	out.CurrentContext = name
	return out, nil
}

// Merge adds the current context of src into the kubeconfig at path.
// Existing entries with the same names are replaced when overwrite is true,
// otherwise src entries get a -1, -2, ... suffix. The merged config is
// returned and not written.
func Merge(src *clientcmdapi.Config, path string, overwrite, setCurrent bool) (*clientcmdapi.Config, Result, error) {
	if src == nil || src.CurrentContext == "" || src.Contexts[src.CurrentContext] == nil {
		return nil, Result{}, fmt.Errorf("input kubeconfig has no current context")
	}
	srcCtx := src.Contexts[src.CurrentContext]
	cluster, ok := src.Clusters[srcCtx.Cluster]
	if !ok {
		return nil, Result{}, fmt.Errorf("referenced cluster %q not found", srcCtx.Cluster)
	}
	user, ok := src.AuthInfos[srcCtx.AuthInfo]
	if !ok {
		return nil, Result{}, fmt.Errorf("referenced user %q not found", srcCtx.AuthInfo)
	}

	dst, err := clientcmd.LoadFromFile(path)
	if err != nil {
		dst = clientcmdapi.NewConfig()
	}

	ctxName, clusterName, userName := src.CurrentContext, srcCtx.Cluster, srcCtx.AuthInfo
	res := Result{}
	if !overwrite {
		ctxName = uniqueName(ctxName, dst.Contexts)
		clusterName = uniqueName(clusterName, dst.Clusters)
		userName = uniqueName(userName, dst.AuthInfos)
		res.Renamed = ctxName != src.CurrentContext
	}

	ctx := srcCtx.DeepCopy()
	ctx.Cluster = clusterName
	ctx.AuthInfo = userName
	dst.Contexts[ctxName] = ctx
	dst.Clusters[clusterName] = cluster.DeepCopy()
	dst.AuthInfos[userName] = user.DeepCopy()
	res.Context = ctxName

	if setCurrent || dst.CurrentContext == "" {
		dst.CurrentContext = ctxName
		res.Current = true
	}
	return dst, res, nil
}

// WriteFile writes cfg to path with 0600 permissions.
func WriteFile(cfg *clientcmdapi.Config, path string) error {
	if err := clientcmd.WriteToFile(*cfg, path); err != nil {
		return fmt.Errorf("write kubeconfig %s: %w", path, err)
	}
	return nil
}

// Print writes cfg to w as yaml (default) or json.
func Print(w io.Writer, cfg *clientcmdapi.Config, format string) error {
	data, err := clientcmd.Write(*cfg)
	if err != nil {
		return fmt.Errorf("serialize kubeconfig: %w", err)
	}
	if format == "json" {
		if data, err = yaml.YAMLToJSON(data); err != nil {
			return fmt.Errorf("convert to json: %w", err)
		}
	}
	_, err = w.Write(data)
	return err
}

func uniqueName[T any](name string, m map[string]T) string {
	if _, ok := m[name]; !ok {
		return name
	}
	for i := 1; ; i++ {
		cand := fmt.Sprintf("%s-%d", name, i)
		if _, ok := m[cand]; !ok {
			return cand
		}
	}
}
