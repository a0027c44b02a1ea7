package core

// BladeVersion is the current version of blade.
// Release builds replace this with the real version via -ldflags.
var BladeVersion = "0.9.0"
