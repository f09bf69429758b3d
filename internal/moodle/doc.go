// Package moodle is the REST web-service client for Moodle-family LMS sites.
//
// Every call is one POST to the site's single REST endpoint with the
// function name, token and format flag as form fields. List-of-record
// parameters use the protocol's positional bracket convention
// (records[0][field], records[1][field], ...), which is a hard wire
// requirement of the API family. Booleans travel as 1/0.
//
// # Error model
//
// The site reports application failures in-band: an HTTP 200 whose body is
// an object with an exception field. Every response is checked for that
// marker before result decoding. Callers see exactly three failure classes,
// discriminated with errors.As:
//
//   - *TransportError: the HTTP exchange itself failed, or a success body
//     was unparseable
//   - *RemoteError: the site rejected the call and said why
//   - *EncodeError: the request could not be built; nothing was sent
//
// Calls never retry. Section and module creation go through the
// wsmanagesections and modmanager local plugin families, since the stock
// web service surface has no section-creation functions.
//
// # Usage
//
//	client := moodle.New(moodle.Config{BaseURL: url, Token: token}, logger)
//	info, err := client.GetSiteInfo(ctx)
//
// A Client is cheap and single-workflow: build one per run instead of
// sharing instances across concurrent workflows.
package moodle
