package domain

import (
	"slices"

	"go.trai.ch/zerr"
)

// Vendor is a browser vendor the extension can be packaged for.
type Vendor string

const (
	// VendorChrome packages a Chrome Web Store zip.
	VendorChrome Vendor = "chrome"
	// VendorFirefox packages a signed-ready xpi.
	VendorFirefox Vendor = "firefox"
	// VendorEdge packages an Edge add-ons zip.
	VendorEdge Vendor = "edge"
	// VendorSafari packages a zip holding a .safariextension folder.
	VendorSafari Vendor = "safari"
)

// Vendors lists every supported vendor in packaging order.
func Vendors() []Vendor {
	return []Vendor{VendorChrome, VendorFirefox, VendorEdge, VendorSafari}
}

// ParseVendor validates a vendor tag.
func ParseVendor(tag string) (Vendor, error) {
	v := Vendor(tag)
	if !slices.Contains(Vendors(), v) {
		return "", zerr.With(ErrUnknownVendor, "vendor", tag)
	}
	return v, nil
}

// ArchiveExt returns the file extension of the vendor's archive.
func (v Vendor) ArchiveExt() string {
	if v == VendorFirefox {
		return ".xpi"
	}
	return ".zip"
}

func (v Vendor) String() string {
	return string(v)
}
