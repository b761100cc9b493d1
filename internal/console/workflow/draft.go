package workflow

import "sitedesk.org/internal/registry"

// Draft stages edits to a site's editable attributes. Each setter compares
// the new value against the fetched base record and records only the fields
// that actually differ, so the resulting patch carries exactly the changed
// fields. Reverting a field to its original value removes it from the patch.
type Draft struct {
	siteID string
	base   registry.Site
	patch  registry.SiteUpdate
}

// NewDraft opens a draft over the given site snapshot.
func NewDraft(site registry.Site) *Draft {
	return &Draft{siteID: site.ID, base: site}
}

// SiteID identifies the site under edit.
func (d *Draft) SiteID() string { return d.siteID }

// Patch returns the accumulated partial update.
func (d *Draft) Patch() registry.SiteUpdate { return d.patch }

// HasChanges reports whether any field differs from the base record.
func (d *Draft) HasChanges() bool { return !d.patch.IsEmpty() }

func (d *Draft) SetHouseNo(v string) {
	d.patch.HouseNo = stringField(d.base.HouseNo, v)
}

func (d *Draft) SetStreet(v string) {
	d.patch.Street = stringField(d.base.Street, v)
}

func (d *Draft) SetNearestLandmark(v string) {
	d.patch.NearestLandmark = stringField(d.base.NearestLandmark, v)
}

func (d *Draft) SetAdditionalDirections(v string) {
	d.patch.AdditionalDirections = stringField(d.base.AdditionalDirections, v)
}

// SetArea stages an area change. Any staged block is dropped, since block
// choices are scoped to the area they were picked from.
func (d *Draft) SetArea(id int) {
	d.patch.BlockID = nil
	if id == d.base.Area.ID {
		d.patch.AreaID = nil
		return
	}
	d.patch.AreaID = &id
}

func (d *Draft) SetBlock(id int) {
	if id == d.base.Block.ID {
		d.patch.BlockID = nil
		return
	}
	d.patch.BlockID = &id
}

func (d *Draft) SetPinLat(v float64) {
	d.patch.PinLat = floatField(d.base.PinLat, v)
}

func (d *Draft) SetPinLng(v float64) {
	d.patch.PinLng = floatField(d.base.PinLng, v)
}

func (d *Draft) SetPinAccuracyM(v float64) {
	d.patch.PinAccuracyM = floatField(d.base.PinAccuracyM, v)
}

// Site renders the draft state: the base record with the staged edits
// applied. Used for display while editing.
func (d *Draft) Site() registry.Site {
	site := d.base
	if d.patch.HouseNo != nil {
		site.HouseNo = *d.patch.HouseNo
	}
	if d.patch.Street != nil {
		site.Street = *d.patch.Street
	}
	if d.patch.NearestLandmark != nil {
		site.NearestLandmark = *d.patch.NearestLandmark
	}
	if d.patch.AdditionalDirections != nil {
		site.AdditionalDirections = *d.patch.AdditionalDirections
	}
	if d.patch.AreaID != nil {
		site.Area = registry.Area{ID: *d.patch.AreaID}
	}
	if d.patch.BlockID != nil {
		site.Block = registry.Block{ID: *d.patch.BlockID}
	}
	if d.patch.PinLat != nil {
		site.PinLat = d.patch.PinLat
	}
	if d.patch.PinLng != nil {
		site.PinLng = d.patch.PinLng
	}
	if d.patch.PinAccuracyM != nil {
		site.PinAccuracyM = d.patch.PinAccuracyM
	}
	return site
}

func stringField(base, v string) *string {
	if v == base {
		return nil
	}
	return &v
}

func floatField(base *float64, v float64) *float64 {
	if base != nil && *base == v {
		return nil
	}
	return &v
}
