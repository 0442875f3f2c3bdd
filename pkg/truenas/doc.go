/*
Package truenas is a typed client for the TrueNAS v2.0 REST API, covering
the subset Anvil needs: pools, datasets and zvols, iSCSI targets, extents
and target-extent associations, service control, and system probes.

All requests carry bearer token authentication. Errors are classified
into three sentinel categories so callers can branch without parsing
messages:

  - ErrUnauthenticated: HTTP 401, the API key is wrong or expired
  - ErrConnectionFailed: the request never produced an HTTP response
  - ErrUnexpectedStatus: any other non-2xx response

The full status and response body are preserved in StatusError for
logging. Lookups of single resources return (nil, nil) on 404 rather
than an error; absence is a normal answer during reconciliation.
*/
package truenas
