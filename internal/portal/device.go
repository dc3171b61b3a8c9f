// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package portal

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// magPrefix is the vendor prefix portals expect for set-top box devices.
const magPrefix = "00:1A:79"

var deviceIDPattern = regexp.MustCompile(`^[0-9A-F]{2}(:[0-9A-F]{2}){5}$`)

// NewDeviceID returns a random MAC-style device id with the MAG prefix.
func NewDeviceID() string {
	u := uuid.New()
	return fmt.Sprintf("%s:%02X:%02X:%02X", magPrefix, u[0], u[1], u[2])
}

// NormalizeDeviceID upper-cases id and reports whether it is MAC-shaped.
func NormalizeDeviceID(id string) (string, bool) {
	id = strings.ToUpper(strings.TrimSpace(strings.ReplaceAll(id, "-", ":")))
	return id, deviceIDPattern.MatchString(id)
}
