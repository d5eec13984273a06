// Package typereg holds the structure types that describe structured
// signal values.
//
// A Registry answers member queries for the transcoder's layout builder.
// Types are usually read from the types section of the YAML configuration:
//
//	types:
//	  - name: SCU
//	    members:
//	      - {name: ID, type: uint8}
//	      - {name: Mode, type: Mode_Config, elements: 2}
//	  - name: Mode_Config
//	    members:
//	      - {name: Enabled, type: bool}
//	      - {name: Setpoints, type: float, elements: 3}
//
// A member whose type is not a scalar name refers to another structure.
package typereg
