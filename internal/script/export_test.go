package script

// Test-only exports for black-box tests that need internal reach.
var DecodeScript = decodeScript
