// Package config defines the format-agnostic configuration model for
// scenegrid along with the Loader interface that fills it from a
// configuration source.
//
// The `config.Model` is the single source of truth for how the app wires
// the executor and its injected services. Concrete loaders, such as the
// HCL one, live in separate packages.
package config
