package main

// Version is the daemon's release version, stamped at build time in a
// real release pipeline; kept as a plain constant here, matching the
// teacher's version.Version.
const Version = "0.1.0"
