// Package plugins hosts plugin implementation subpackages. It contains no
// runtime code; the architecture guard next to this file keeps plugins on the
// engine and domain APIs and away from concrete storage backends.
package plugins
