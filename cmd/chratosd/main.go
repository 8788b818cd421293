// Command chratosd runs a chratos peer-to-peer ledger node, following
// the teacher's cmd/babble entrypoint shape: a thin main that defers
// everything to the cobra command tree in this package.
package main

func main() {
	Execute()
}
