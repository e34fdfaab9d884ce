// Package config loads and validates the webstone server configuration.
//
// Values are layered: built-in defaults, then the YAML file, then
// WEBSTONE_* environment variables. Secrets such as the MQTT password and
// the InfluxDB token are best supplied through the environment.
//
// Usage:
//
//	cfg, err := config.Load("configs/webstone.yaml")
//	if err != nil {
//	    return err
//	}
//	fmt.Println(cfg.Server.Port)
package config
