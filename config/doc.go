// Package config loads data source configuration from YAML.
//
// A document names the endpoint, the session mode, the structure types the
// codec may meet and the signals to bind:
//
//	endpoint: opc.tcp://plc:4840
//	mode: writer
//	fast_access: true
//	resolve: {budget: 5s, attempts: 2}
//	types:
//	  - name: Mode_Config
//	    members: [{name: Enabled, type: bool}, {name: Setpoint, type: f32}]
//	signals:
//	  - {name: speed, path: Line1.Drive.Speed, namespace: 2, type: f32}
//	  - {name: scu, path: Line1.SCU, namespace: 2, type: Mode_Config, structured: true}
//
// Parse and Load apply defaults and validate, so a Config they return is
// ready for use. Every rejection is a configuration error.
package config
