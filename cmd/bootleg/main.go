// Command bootleg is the host simulator for the firmware memory foundation.
// It boots the segment allocator and the size-class heap on host memory,
// prints the resulting memory map, and runs allocation workloads against it.
package main

func main() {
	execute()
}
