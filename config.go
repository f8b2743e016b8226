// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package restkit

import (
	"io"
	"os"

	bedrockcfg "github.com/z5labs/bedrock/config"
)

// ConfigSource standardizes the template for configuration of restkit applications.
// The [io.Reader] is expected to be YAML with support for Go templating. Currently,
// only 2 template functions are supported:
//   - env - this allows environment variables to be substituted into the YAML
//   - default - define a default value in case the original value is nil
func ConfigSource(r io.Reader) bedrockcfg.Source {
	return bedrockcfg.FromYaml(
		bedrockcfg.RenderTextTemplate(
			r,
			bedrockcfg.TemplateFunc("env", lookupEnv),
			bedrockcfg.TemplateFunc("default", orDefault),
		),
	)
}

func lookupEnv(key string) any {
	v, ok := os.LookupEnv(key)
	if ok {
		return v
	}
	return nil
}

func orDefault(def, v any) any {
	if v == nil {
		return def
	}
	return v
}
