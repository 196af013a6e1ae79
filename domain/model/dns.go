package model

// DNSRecordType represents provider-agnostic DNS record types.
type DNSRecordType string

const (
	DNSRecordTypeA     DNSRecordType = "A"
	DNSRecordTypeAAAA  DNSRecordType = "AAAA"
	DNSRecordTypeCNAME DNSRecordType = "CNAME"
)

// DNSRecordSet describes a single DNS record set identified by FQDN and type.
type DNSRecordSet struct {
	FQDN  string // Absolute FQDN. Trailing dot is optional.
	Type  DNSRecordType
	TTL   uint32   // seconds, provider default when zero
	RData []string // presentation format, empty means delete
}

// ClusterDNSApplyOptions tunes DNSApply.
type ClusterDNSApplyOptions struct {
	ZoneHint string // zone name or resource ID
	Strict   bool   // fail instead of warn when no zone matches
	DryRun   bool
}

type ClusterDNSApplyOption func(*ClusterDNSApplyOptions)

func WithClusterDNSApplyZoneHint(hint string) ClusterDNSApplyOption {
	return func(o *ClusterDNSApplyOptions) { o.ZoneHint = hint }
}
func WithClusterDNSApplyStrict() ClusterDNSApplyOption {
	return func(o *ClusterDNSApplyOptions) { o.Strict = true }
}
func WithClusterDNSApplyDryRun() ClusterDNSApplyOption {
	return func(o *ClusterDNSApplyOptions) { o.DryRun = true }
}
