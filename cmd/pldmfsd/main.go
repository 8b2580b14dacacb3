// Command pldmfsd is the PLDM OEM file I/O responder daemon.
package main

func main() {
	Execute()
}
