package config

// Version is the MEDIATE binary version, set at build time with
// -ldflags "-X github.com/mediate-project/mediate/internal/config.Version=<tag>".
var Version = "dev"
