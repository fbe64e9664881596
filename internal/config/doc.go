// Package config defines the format-agnostic fit model: which instruments are
// fitted, what data they carry and which parameters (with their priors) the
// sampler explores. It also declares the Loader interface implemented by
// format-specific packages such as hcl_adapter.
//
// The `config.Model` is the single source of truth for the registry, dataset
// and model packages; nothing downstream knows the on-disk format.
package config
