package enums

import "fmt"

// BOMStatus tracks whether a bill of materials revision is usable for planning.
type BOMStatus string

const (
	BOMStatusDraft      BOMStatus = "draft"
	BOMStatusActive     BOMStatus = "active"
	BOMStatusSuperseded BOMStatus = "superseded"
	BOMStatusObsolete   BOMStatus = "obsolete"
)

var validBOMStatuses = []BOMStatus{
	BOMStatusDraft,
	BOMStatusActive,
	BOMStatusSuperseded,
	BOMStatusObsolete,
}

// String implements fmt.Stringer.
func (s BOMStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known BOMStatus.
func (s BOMStatus) IsValid() bool {
	for _, candidate := range validBOMStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseBOMStatus converts raw input into a BOMStatus.
func ParseBOMStatus(value string) (BOMStatus, error) {
	for _, candidate := range validBOMStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid bom status %q", value)
}
