// Package dataverse is a client for the Microsoft Dataverse Web API (v9.x).
//
// It covers the three query families the export pipeline needs:
//
//   - view lookup by name and entity in the system (savedqueries) and
//     personal (userqueries) view stores
//   - paged record retrieval with FetchXML
//   - attribute metadata retrieval, including date-only formats and option
//     set labels
//
// Records are decoded into record.RawRecord values. Lookup columns, which the
// Web API returns as "_name_value" plus annotations, are folded back into a
// single record.Reference under the logical attribute name.
//
// # Authentication
//
// Requests carry an OAuth2 bearer token from golang.org/x/oauth2. Three modes
// are supported: client credentials, resource-owner password (the classic
// username/password connection string), and a static token.
//
// # Retries
//
// The transport retries network errors and 5xx responses with exponential
// backoff, up to Config.MaxRetries. Authentication failures, bad requests,
// missing resources and rate limits are returned immediately.
package dataverse
