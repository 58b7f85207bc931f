// Package cli implements hawkcurl, a command-line client for the partner API.
//
// request: send a signed request and verify the signed response
//
//	hawkcurl request --id data-flow --key "$KEY" \
//		https://wins.example.com/data-flow/export-wins/?financial_year=2024
//
// sign: print an Authorization header for another client
//
//	curl -H "$(hawkcurl sign --id data-hub --key "$KEY" https://wins.example.com/data-hub/export-wins/42)" ...
//
// check-credentials: validate a credentials file before deploying it
//
//	hawkcurl check-credentials --file ./credentials.yaml
//
// Credentials default to the HAWK_ID and HAWK_KEY environment variables.
package cli
