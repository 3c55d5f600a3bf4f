// Package service runs the probe battery and delivers the export documents.
//
// An Exporter runs every non action probe, records the results in a
// session and renders the document as JSON or CycloneDX. A Watcher owns an
// event loop that calls a scan function and hands the produced bytes to
// the configured uploaders:
//
//	Watcher                  ScanFunc (Exporter.Export)     Uploaders
//	   |  gocron tick -> Start()  |                            |
//	   |------------------------->| probe.RunAll               |
//	   |<------- []byte ----------|                            |
//	   |------------------------------------------------------>| Upload
//
// In manual mode the Watcher performs a single scan and returns its error.
// In timer mode it scans on every tick of service.schedule and only logs
// failures until the context is cancelled. Ticks arriving while a scan is in
// progress are coalesced into one.
package service
