// Package config defines the watchdog's declarative configuration: state
// rules, entry nodes, completion nodes, monitoring settings, and
// notification settings.
//
// Configuration is a single YAML document. Before decoding, the document is
// validated against an embedded CUE schema so that structural problems
// (empty transition lists, non-positive timeouts, unknown notify events)
// fail at load time with positional errors instead of surfacing as runtime
// misbehavior.
//
// Rule declaration order is significant: the engine resolves branch ties in
// the order rules appear in the document. Rules are therefore a YAML list,
// never a map.
//
// The loaded Config is immutable after Load returns. There is no hot
// reload; a config change requires a restart.
package config
