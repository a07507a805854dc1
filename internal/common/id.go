package common

import (
	"github.com/google/uuid"
)

// NewKeywordID generates a unique keyword ID.
// Format: kw_<uuid>
func NewKeywordID() string {
	return "kw_" + uuid.New().String()
}

// NewScanJobID generates a unique scan job ID.
// Format: scan_<uuid>
func NewScanJobID() string {
	return "scan_" + uuid.New().String()
}

// NewScanResultID generates a unique scan result ID.
// Format: res_<uuid>
func NewScanResultID() string {
	return "res_" + uuid.New().String()
}

// NewProjectID generates a unique project ID.
// Format: prj_<uuid>
func NewProjectID() string {
	return "prj_" + uuid.New().String()
}
