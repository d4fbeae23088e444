// ABOUTME: Kasumin wire protocol package
// ABOUTME: Defines the frame envelope, message schema and TCP client
// Package protocol implements the Kasumin control protocol.
//
// Every frame is an 11-byte envelope ("kasu:", a big-endian u32 payload
// length and "\r\n") followed by a MessagePack encoded payload. Clients
// send KasuminRequest values; the server answers with KasuminResponse
// snapshots that are broadcast to every connected client.
//
// Example:
//
//	client := protocol.NewClient(protocol.Config{ServerAddr: protocol.DefaultAddress, Name: "cli"})
//	err := client.Connect(ctx)
//	err = client.Query(protocol.QueryOutputDevices)
package protocol
