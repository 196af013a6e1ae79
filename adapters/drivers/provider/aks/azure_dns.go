package aks

import (
	"context"
	"fmt"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/arm"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/dns/armdns"

	"github.com/securebackend/sbops/domain/model"
	"github.com/securebackend/sbops/internal/logging"
)

const (
	// Default TTL for DNS records when not specified (5 minutes)
	defaultDNSRecordTTL = 300

	// Cluster settings key for DNS Zone Resource IDs
	settingAzureAKSDNSZoneResourceIDs = "AZURE_AKS_DNS_ZONE_RESOURCE_IDS"
)

// azureDNSZoneInfo represents parsed Azure DNS Zone resource information.
type azureDNSZoneInfo struct {
	ResourceID string // Full resource ID
	Name       string // Zone name (e.g., "example.com")
}

// parseAzureDNSZoneID parses an Azure DNS Zone resource ID.
// Expected format: /subscriptions/{sub}/resourceGroups/{rg}/providers/Microsoft.Network/dnszones/{zone}
func parseAzureDNSZoneID(resourceID string) (*azureDNSZoneInfo, error) {
	rid, err := arm.ParseResourceID(resourceID)
	if err != nil {
		return nil, fmt.Errorf("parse Azure DNS Zone resource ID: %w", err)
	}
	if !strings.EqualFold(rid.ResourceType.Namespace, "Microsoft.Network") ||
		!strings.EqualFold(rid.ResourceType.Type, "dnszones") {
		return nil, fmt.Errorf("invalid resource type for DNS Zone: expected Microsoft.Network/dnszones, got %s/%s",
			rid.ResourceType.Namespace, rid.ResourceType.Type)
	}
	return &azureDNSZoneInfo{
		ResourceID: resourceID,
		Name:       rid.Name,
	}, nil
}

// splitResourceIDs splits a comma or whitespace separated settings value.
func splitResourceIDs(raw string) []string {
	return strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n'
	})
}

// collectDNSZoneIDs retrieves and parses DNS zone resource IDs from cluster settings.
func collectDNSZoneIDs(cluster *model.Cluster) ([]*azureDNSZoneInfo, error) {
	if cluster == nil || cluster.Settings == nil {
		return nil, nil
	}
	ids := splitResourceIDs(cluster.Settings[settingAzureAKSDNSZoneResourceIDs])
	zones := make([]*azureDNSZoneInfo, 0, len(ids))
	for _, id := range ids {
		info, err := parseAzureDNSZoneID(id)
		if err != nil {
			return nil, err
		}
		zones = append(zones, info)
	}
	return zones, nil
}

// selectDNSZone selects the best matching DNS zone for the given FQDN.
// Priority: 1) zoneHint (match by ID or name), 2) longest suffix match.
func selectDNSZone(ctx context.Context, fqdn string, zones []*azureDNSZoneInfo, zoneHint string) (*azureDNSZoneInfo, error) {
	log := logging.FromContext(ctx)

	if len(zones) == 0 {
		return nil, fmt.Errorf("no DNS zones configured in cluster.settings.%s", settingAzureAKSDNSZoneResourceIDs)
	}

	fqdn = strings.TrimSuffix(fqdn, ".")

	if zoneHint != "" {
		for _, z := range zones {
			if strings.EqualFold(z.ResourceID, zoneHint) || strings.EqualFold(z.Name, strings.TrimSuffix(zoneHint, ".")) {
				log.Debug(ctx, "DNS zone selected via hint", "fqdn", fqdn, "zone", z.Name, "zone_id", z.ResourceID)
				return z, nil
			}
		}
		log.Warn(ctx, "DNS zone hint did not match any configured zone", "hint", zoneHint)
	}

	var bestMatch *azureDNSZoneInfo
	bestMatchLen := 0
	for _, z := range zones {
		zoneName := strings.TrimSuffix(z.Name, ".")
		if fqdn == zoneName || strings.HasSuffix(fqdn, "."+zoneName) {
			if len(zoneName) > bestMatchLen {
				bestMatch = z
				bestMatchLen = len(zoneName)
			}
		}
	}
	if bestMatch != nil {
		log.Debug(ctx, "DNS zone selected via longest-match", "fqdn", fqdn, "zone", bestMatch.Name, "zone_id", bestMatch.ResourceID)
		return bestMatch, nil
	}

	return nil, fmt.Errorf("no matching DNS zone found for FQDN %s", fqdn)
}

// normalizeDNSRecordSet validates and normalizes the input record set.
func normalizeDNSRecordSet(rset *model.DNSRecordSet) error {
	if rset.FQDN == "" {
		return fmt.Errorf("FQDN is required")
	}
	rset.FQDN = strings.ToLower(strings.TrimSuffix(rset.FQDN, "."))

	switch rset.Type {
	case model.DNSRecordTypeA, model.DNSRecordTypeAAAA, model.DNSRecordTypeCNAME:
	default:
		return fmt.Errorf("unsupported DNS record type: %s", rset.Type)
	}
	if rset.Type == model.DNSRecordTypeCNAME && len(rset.RData) > 1 {
		return fmt.Errorf("CNAME record must have exactly one RData entry, got %d", len(rset.RData))
	}
	if rset.TTL == 0 {
		rset.TTL = defaultDNSRecordTTL
	}
	return nil
}

// azureDNSRecordSetName converts FQDN to the zone-relative record set name.
// APEX records are represented as "@".
func azureDNSRecordSetName(fqdn string, zoneName string) string {
	fqdn = strings.TrimSuffix(fqdn, ".")
	zoneName = strings.TrimSuffix(zoneName, ".")
	if fqdn == zoneName {
		return "@"
	}
	if strings.HasSuffix(fqdn, "."+zoneName) {
		return strings.TrimSuffix(fqdn, "."+zoneName)
	}
	return fqdn
}

// azureDNSRecordSet builds the ARM record set body for rset.
func azureDNSRecordSet(rset model.DNSRecordSet) (armdns.RecordSet, error) {
	properties := armdns.RecordSetProperties{
		TTL:      to.Ptr(int64(rset.TTL)),
		Metadata: map[string]*string{"managed-by": to.Ptr("sbops")},
	}
	switch rset.Type {
	case model.DNSRecordTypeA:
		for _, ip := range rset.RData {
			properties.ARecords = append(properties.ARecords, &armdns.ARecord{IPv4Address: to.Ptr(ip)})
		}
	case model.DNSRecordTypeAAAA:
		for _, ip := range rset.RData {
			properties.AaaaRecords = append(properties.AaaaRecords, &armdns.AaaaRecord{IPv6Address: to.Ptr(ip)})
		}
	case model.DNSRecordTypeCNAME:
		if len(rset.RData) > 0 {
			properties.CnameRecord = &armdns.CnameRecord{Cname: to.Ptr(rset.RData[0])}
		}
	default:
		return armdns.RecordSet{}, fmt.Errorf("unsupported record type: %s", rset.Type)
	}
	return armdns.RecordSet{Properties: &properties}, nil
}

// ClusterDNSApply upserts the record set, or deletes it when RData is empty.
func (d *driver) ClusterDNSApply(ctx context.Context, cluster *model.Cluster, rset model.DNSRecordSet, opts ...model.ClusterDNSApplyOption) (err error) {
	ctx, cleanup := d.withMethodLogger(ctx, "ClusterDNSApply")
	defer func() { cleanup(err) }()

	var o model.ClusterDNSApplyOptions
	for _, opt := range opts {
		opt(&o)
	}
	log := logging.FromContext(ctx)

	if err := normalizeDNSRecordSet(&rset); err != nil {
		return err
	}
	zones, err := collectDNSZoneIDs(cluster)
	if err != nil {
		return err
	}
	zone, err := selectDNSZone(ctx, rset.FQDN, zones, o.ZoneHint)
	if err != nil {
		if o.Strict {
			return err
		}
		log.Warn(ctx, "DNS record not applied", "fqdn", rset.FQDN, "err", err)
		return nil
	}
	if o.DryRun {
		log.Info(ctx, "dry-run: DNS record change skipped",
			"zone", zone.Name,
			"record_name", azureDNSRecordSetName(rset.FQDN, zone.Name),
			"type", rset.Type,
			"rdata", rset.RData,
		)
		return nil
	}
	if len(rset.RData) == 0 {
		return d.deleteAzureDNSRecord(ctx, zone, rset)
	}
	return d.upsertAzureDNSRecord(ctx, zone, rset)
}

func (d *driver) recordSetsClient(zone *azureDNSZoneInfo) (*armdns.RecordSetsClient, *arm.ResourceID, error) {
	rid, err := arm.ParseResourceID(zone.ResourceID)
	if err != nil {
		return nil, nil, fmt.Errorf("parse zone resource ID: %w", err)
	}
	client, err := armdns.NewRecordSetsClient(rid.SubscriptionID, d.TokenCredential, d.clientOptions)
	if err != nil {
		return nil, nil, fmt.Errorf("create DNS record sets client: %w", err)
	}
	return client, rid, nil
}

// upsertAzureDNSRecord creates or updates an Azure DNS record set.
func (d *driver) upsertAzureDNSRecord(ctx context.Context, zone *azureDNSZoneInfo, rset model.DNSRecordSet) error {
	client, rid, err := d.recordSetsClient(zone)
	if err != nil {
		return err
	}
	recordSet, err := azureDNSRecordSet(rset)
	if err != nil {
		return err
	}
	relName := azureDNSRecordSetName(rset.FQDN, zone.Name)

	logging.FromContext(ctx).Info(ctx, "upserting Azure DNS record",
		"zone_resource_id", zone.ResourceID,
		"record_name", relName,
		"type", rset.Type,
		"ttl", rset.TTL,
		"rdata", rset.RData,
	)
	if _, err := client.CreateOrUpdate(ctx, rid.ResourceGroupName, zone.Name, relName, armdns.RecordType(rset.Type), recordSet, nil); err != nil {
		return fmt.Errorf("create/update DNS record: %w", err)
	}
	return nil
}

// deleteAzureDNSRecord deletes an Azure DNS record set. A missing record is success.
func (d *driver) deleteAzureDNSRecord(ctx context.Context, zone *azureDNSZoneInfo, rset model.DNSRecordSet) error {
	client, rid, err := d.recordSetsClient(zone)
	if err != nil {
		return err
	}
	relName := azureDNSRecordSetName(rset.FQDN, zone.Name)

	logging.FromContext(ctx).Info(ctx, "deleting Azure DNS record",
		"zone_resource_id", zone.ResourceID,
		"record_name", relName,
		"type", rset.Type,
	)
	if _, err := client.Delete(ctx, rid.ResourceGroupName, zone.Name, relName, armdns.RecordType(rset.Type), nil); err != nil && !isAzureNotFound(err) {
		return fmt.Errorf("delete DNS record: %w", err)
	}
	return nil
}
