package config

import (
	"strconv"

	"github.com/wippyai/opcua-bridge/errors"
	"github.com/wippyai/opcua-bridge/transcoder"
)

// Validate checks the configuration before any network call. Every
// failure is a configuration error.
func (c *Config) Validate() error {
	if c.Endpoint == "" {
		return errors.FieldMissing(errors.PhaseConfig, nil, "endpoint")
	}

	switch c.Mode {
	case ModeWriter, ModeReader:
	case ModeMethod:
		if err := c.validateMethod(); err != nil {
			return err
		}
	default:
		return errors.New(errors.PhaseConfig, errors.KindInvalidInput).
			Path("mode").
			Detail("unknown mode %q", c.Mode).
			Value(string(c.Mode)).
			Build()
	}

	if c.Resolve.Budget < 0 || c.Resolve.Attempts < 0 {
		return errors.New(errors.PhaseConfig, errors.KindInvalidInput).
			Path("resolve").
			Detail("budget and attempts must not be negative").
			Build()
	}

	reg, err := c.Registry()
	if err != nil {
		return err
	}

	names := make(map[string]int, len(c.Signals))
	structured := -1
	for i, s := range c.Signals {
		field := "signals[" + strconv.Itoa(i) + "]"

		if prev, dup := names[s.Name]; dup {
			return errors.New(errors.PhaseConfig, errors.KindInvalidInput).
				Path(field, "name").
				Detail("signal %q already declared at index %d", s.Name, prev).
				Build()
		}
		names[s.Name] = i

		if _, err := s.PathSpec(); err != nil {
			return errors.New(errors.PhaseConfig, errors.KindInvalidInput).
				Path(field, "path").
				Signal(s.Name).
				Detail("invalid browse path").
				Cause(err).
				Build()
		}
		if s.Count() == 0 {
			return errors.New(errors.PhaseConfig, errors.KindInvalidInput).
				Path(field, "elements").
				Signal(s.Name).
				Detail("element count must be at least 1").
				Build()
		}
		if s.Type == "" {
			return errors.FieldMissing(errors.PhaseConfig, []string{field}, "type")
		}

		if !s.Structured {
			if _, err := transcoder.ParseScalar(s.Type); err != nil {
				return errors.New(errors.PhaseConfig, errors.KindInvalidInput).
					Path(field, "type").
					Signal(s.Name).
					Detail("unsupported scalar type %q", s.Type).
					Cause(err).
					Build()
			}
			continue
		}

		if structured >= 0 {
			return errors.New(errors.PhaseConfig, errors.KindInvalidInput).
				Path(field, "structured").
				Signal(s.Name).
				Detail("only one structured signal per source, %q already is", c.Signals[structured].Name).
				Build()
		}
		structured = i

		if !reg.Has(s.Type) {
			return errors.New(errors.PhaseConfig, errors.KindNotFound).
				Path(field, "type").
				Signal(s.Name).
				Detail("structure type %q is not declared under types", s.Type).
				Build()
		}
	}

	if c.Mode == ModeMethod && structured < 0 {
		return errors.New(errors.PhaseConfig, errors.KindInvalidInput).
			Path("signals").
			Detail("method mode needs a structured signal to pass as the argument").
			Build()
	}
	return nil
}

func (c *Config) validateMethod() error {
	if _, err := c.Method.Object.PathSpec(); err != nil {
		return errors.New(errors.PhaseConfig, errors.KindFieldMissing).
			Path("method", "object").
			Detail("method mode needs the object path").
			Cause(err).
			Build()
	}
	if _, err := c.Method.Method.PathSpec(); err != nil {
		return errors.New(errors.PhaseConfig, errors.KindFieldMissing).
			Path("method", "method").
			Detail("method mode needs the method path").
			Cause(err).
			Build()
	}
	if c.Method.LivenessInterval < 0 {
		return errors.New(errors.PhaseConfig, errors.KindInvalidInput).
			Path("method", "liveness_interval").
			Detail("interval must not be negative").
			Build()
	}
	return nil
}
