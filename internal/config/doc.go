// Package config manages the device-management client configuration.
//
// Settings come from three layers, later layers winning:
//
//  1. A YAML file, by default $XDG_CONFIG_HOME/devmgr/config.yaml
//     (%LOCALAPPDATA%\devmgr on Windows, $HOME/.config/devmgr on macOS)
//  2. DEVMGR_* environment variables, optionally loaded from a .env file
//  3. Command-line flags, applied by the caller
//
// Example file:
//
//	version: 1
//	service_url: http://10.0.0.2:8002/xiaozhi
//	timeout: 10s
//	retry:
//	    delay: 1s
//	    max_delay: 30s
//	    window: 1m0s
//	    exponential: true
//	discovery:
//	    enabled: true
//	    timeout: 3s
//	    service: _devmgr._tcp
//
// ServiceURL resolves the backend base URL used by every request wrapper.
package config
