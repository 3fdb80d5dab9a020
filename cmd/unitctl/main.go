// Command unitctl creates, inspects and exercises unit allocator regions:
// file-backed regions that persist between invocations, YAML simulation
// scenarios, and CBOR snapshots.
package main

func main() {
	execute()
}
