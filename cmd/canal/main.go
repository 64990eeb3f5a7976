// Canal compiles routing-fabric descriptions into structural netlists,
// configuration address maps, and bitstreams.
package main

func main() {
	Execute()
}
