package version

// Version is overridden at build time via -ldflags "-X ankispeech/pkg/version.Version=...".
var Version = "v0.1.0"
