// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package domain

// AuthSession is the result of a successful handshake. Exactly one live
// session exists per running client.
type AuthSession struct {
	DeviceID      string `json:"device_id"`
	Token         string `json:"token"`
	ServerBaseURL string `json:"server_base_url"`
}

// Valid reports whether the session can sign requests.
func (s AuthSession) Valid() bool {
	return s.DeviceID != "" && s.Token != "" && s.ServerBaseURL != ""
}
