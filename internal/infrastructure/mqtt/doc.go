// Package mqtt provides the optional MQTT republisher connection.
//
// When enabled, huewatch mirrors decoded bridge events onto an MQTT broker
// so other home-automation consumers can follow sensor state without
// talking to the bridge themselves. The package manages:
//   - Connection with auto-reconnect and exponential backoff
//   - Last Will and Testament on huewatch/system/status for offline detection
//   - Publishing with QoS and retained-message support
//
// Topic layout is defined in topics.go. All methods are safe for concurrent
// use from multiple goroutines.
package mqtt
