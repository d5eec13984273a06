package main

import (
	"fmt"
	"strings"

	"github.com/wippyai/opcua-bridge/config"
	"github.com/wippyai/opcua-bridge/transcoder"
	"github.com/wippyai/opcua-bridge/ua"
	"github.com/wippyai/opcua-bridge/uasim"
)

// firstEncodingID numbers the encodings of types that declare none.
const firstEncodingID = 5000

// simulate builds an in-process server exposing every configured signal
// with a zero value of the right shape, plus the configured method.
func simulate(cfg *config.Config) (*uasim.Server, error) {
	reg, err := cfg.Registry()
	if err != nil {
		return nil, err
	}

	srv := uasim.New()
	next := uint32(firstEncodingID)

	for _, sig := range cfg.Signals {
		p, err := sig.PathSpec()
		if err != nil {
			return nil, err
		}

		if sig.Structured {
			l, err := transcoder.BuildLayout(reg, sig.Type, sig.Count())
			if err != nil {
				return nil, err
			}
			body := make([]byte, l.Size())
			if err := l.Encode(body, nil); err != nil {
				return nil, err
			}
			enc := reg.Encoding(sig.Type)
			if enc == nil {
				enc = ua.NumericNodeID{NS: p.Namespace(), ID: next}
				next++
			}
			srv.AddPath(p, uasim.Struct(enc, body))
			continue
		}

		scalar, err := transcoder.ParseScalar(sig.Type)
		if err != nil {
			return nil, err
		}
		width, err := transcoder.ScalarWidth(scalar)
		if err != nil {
			return nil, err
		}
		builtin, err := transcoder.BuiltinOf(scalar)
		if err != nil {
			return nil, err
		}

		raw := make([]byte, int(width)*int(sig.Count()))
		if sig.Count() == 1 {
			srv.AddPath(p, uasim.Scalar(builtin, raw))
		} else {
			srv.AddPath(p, uasim.Array(builtin, sig.Count(), raw))
		}
	}

	if cfg.Mode == config.ModeMethod {
		if err := addMethod(srv, cfg); err != nil {
			return nil, err
		}
	}

	srv.SetPageSize(32)
	return srv, nil
}

func addMethod(srv *uasim.Server, cfg *config.Config) error {
	method, err := cfg.Method.Method.PathSpec()
	if err != nil {
		return err
	}
	object, err := cfg.Method.Object.PathSpec()
	if err != nil {
		return err
	}
	if method.Len() < 2 {
		return fmt.Errorf("method path %s has no parent object", method)
	}

	srv.AddObjectPath(object)
	parentPath := strings.Join(method.Prefix(method.Len()-1), ua.PathSeparator)
	parent := srv.AddObjectPath(ua.MustParsePath(parentPath, method.Namespace()))
	id := ua.StringNodeID{NS: method.Namespace(), ID: method.String()}
	srv.AddMethod(parent, method.Segment(method.Len()-1), id, func(args []ua.Variant) ([]ua.Variant, ua.StatusCode) {
		if len(args) != 1 || args[0].Ext == nil {
			return nil, ua.StatusBadArgumentsMissing
		}
		return nil, ua.StatusGood
	})
	return nil
}
