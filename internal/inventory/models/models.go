// Package models holds the inventory entities. Both are auditable: Asset
// through tagged fields, Device through accessor methods.
package models

import (
	"fmt"
	"strings"
	"time"

	"auditkit/pkg/entityaudit/meta"
	"auditkit/pkg/platform/sentinel"
)

const AssetType = "asset"

// Device action labels.
const (
	DeviceProvisioned    = "provisioned"
	DeviceRemoved        = "removed"
	DeviceDecommissioned = "decommissioned"
)

// Asset is a physical item tracked by location.
type Asset struct {
	meta.Entity `audit:"type=asset"`
	ID          string    `audit:"id" json:"id"`
	Name        string    `audit:"name" json:"name"`
	Location    string    `json:"location"`
	Archived    bool      `json:"archived"`
	UpdatedAt   time.Time `audit:"lastmodified" json:"updated_at"`
}

func NewAsset(name, location string) (*Asset, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: asset name is required", sentinel.ErrInvalidInput)
	}
	return &Asset{Name: name, Location: strings.TrimSpace(location)}, nil
}

func (a *Asset) Key() string { return a.ID }

func (a *Asset) Stamp(id string, at time.Time) {
	a.ID = id
	a.UpdatedAt = at
}

func (a *Asset) Clone() *Asset {
	c := *a
	return &c
}

// Device is attached to an asset. Its audit type is derived from its kind,
// so a sensor audits as "device.sensor".
type Device struct {
	meta.Entity `audit:"create=provisioned,delete=removed"`
	ID          string    `audit:"id" json:"id"`
	Serial      string    `json:"serial"`
	Kind        string    `json:"kind"`
	AssetID     string    `json:"asset_id"`
	Retired     bool      `json:"retired"`
	UpdatedAt   time.Time `audit:"lastmodified" json:"updated_at"`
}

func NewDevice(serial, kind, assetID string) (*Device, error) {
	serial, kind = strings.TrimSpace(serial), strings.ToLower(strings.TrimSpace(kind))
	if serial == "" || kind == "" {
		return nil, fmt.Errorf("%w: device serial and kind are required", sentinel.ErrInvalidInput)
	}
	return &Device{Serial: serial, Kind: kind, AssetID: assetID}, nil
}

func (d *Device) AuditName() string { return d.Serial }
func (d *Device) AuditType() string { return "device." + d.Kind }

func (d *Device) Key() string { return d.ID }

func (d *Device) Stamp(id string, at time.Time) {
	d.ID = id
	d.UpdatedAt = at
}

func (d *Device) Clone() *Device {
	c := *d
	return &c
}
